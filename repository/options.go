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

package repository

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Option configures a repository at construction.
type Option func(*settings)

type settings struct {
	newID func() string
	now   func() time.Time
}

func defaultSettings() *settings {
	return &settings{
		newID: NewObjectIDHex,
		now:   time.Now,
	}
}

// NewObjectIDHex generates identities the way the store does: a fresh
// ObjectID in hex form.
func NewObjectIDHex() string {
	return bson.NewObjectID().Hex()
}

// NewUUIDString generates random UUID identities.
func NewUUIDString() string {
	return uuid.NewString()
}

// WithIDGenerator replaces the identity generator used by Insert for entities
// without an identity.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithUUIDIdentity makes Insert assign UUID identities instead of ObjectIDs.
func WithUUIDIdentity() Option {
	return WithIDGenerator(NewUUIDString)
}

// WithClock replaces the clock used to stamp unset timestamps on insert.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
