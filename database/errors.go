/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrNotConnected is returned when an operation needs a client that has not
// been connected.
var ErrNotConnected = errors.New("database not connected")

// StoreError classifies errors returned by the driver.
type StoreError int

const (
	UnknownErr StoreError = iota
	NoDocumentsErr
	DuplicateKeyErr
	TimeoutErr
	NetworkErr
	WriteConcernErr
	WriteErr
	CommandErr
	ClientDisconnectedErr
	NotConnectedErr
)

func (e StoreError) String() string {
	switch e {
	case NoDocumentsErr:
		return "no_documents"
	case DuplicateKeyErr:
		return "duplicate_key"
	case TimeoutErr:
		return "timeout"
	case NetworkErr:
		return "network"
	case WriteConcernErr:
		return "write_concern"
	case WriteErr:
		return "write"
	case CommandErr:
		return "command"
	case ClientDisconnectedErr:
		return "client_disconnected"
	case NotConnectedErr:
		return "not_connected"
	default:
		return "unknown"
	}
}

// IsStoreError reports whether err came from the store and which kind it is.
// More specific kinds win: a duplicate key write error is DuplicateKeyErr,
// not WriteErr.
func IsStoreError(err error) (is bool, storeErr StoreError) {
	if err == nil {
		return false, UnknownErr
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return true, NoDocumentsErr
	case errors.Is(err, mongo.ErrClientDisconnected):
		return true, ClientDisconnectedErr
	case errors.Is(err, ErrNotConnected):
		return true, NotConnectedErr
	case mongo.IsDuplicateKeyError(err):
		return true, DuplicateKeyErr
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return true, TimeoutErr
	case mongo.IsNetworkError(err):
		return true, NetworkErr
	}

	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		if writeException.WriteConcernError != nil && len(writeException.WriteErrors) == 0 {
			return true, WriteConcernErr
		}
		return true, WriteErr
	}
	var bulkException mongo.BulkWriteException
	if errors.As(err, &bulkException) {
		if bulkException.WriteConcernError != nil && len(bulkException.WriteErrors) == 0 {
			return true, WriteConcernErr
		}
		return true, WriteErr
	}
	var commandErr mongo.CommandError
	if errors.As(err, &commandErr) {
		return true, CommandErr
	}
	return false, UnknownErr
}

// redactURI hides the password of a connection string for logging.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
