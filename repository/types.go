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
	"context"
	"errors"

	"github.com/tomoncle/hummer-mongo/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrMultipleResults is returned by single-result lookups that received more
// than one document from the store.
var ErrMultipleResults = errors.New("repository: sequence contains more than one document")

// Collection is the subset of *mongo.Collection a repository calls.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	UpdateMany(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateManyOptions]) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error)
}

var _ Collection = (*mongo.Collection)(nil)

// CrudRepository defines insert, delete and identity lookups.
type CrudRepository[T any] interface {
	// DeleteByID removes at most one document with the given identity.
	DeleteByID(ctx context.Context, id string) error

	// Delete removes every document matching filter.
	Delete(ctx context.Context, filter any) error

	// Insert persists entity, assigning an identity when it has none.
	Insert(ctx context.Context, entity *T) error

	// InsertMany persists entities in one round trip.
	InsertMany(ctx context.Context, entities []*T) error

	// GetByID returns the document with the given identity, or nil when
	// there is none.
	GetByID(ctx context.Context, id string) (*T, error)

	// Any reports whether at least one document matches filter.
	Any(ctx context.Context, filter any) (bool, error)

	// Count returns the number of documents matching filter.
	Count(ctx context.Context, filter any) (int64, error)
}

// FindRepository defines the Find and FindAll query families.
type FindRepository[T any] interface {
	Find(ctx context.Context, filter any) ([]*T, error)

	// FindPage returns one page of matches ordered by identity ascending.
	FindPage(ctx context.Context, filter any, page types.PageRequest) ([]*T, error)

	// FindSorted returns one page of matches ordered by sort. A sort without
	// an explicit direction is descending.
	FindSorted(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) ([]*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	FindAllPage(ctx context.Context, page types.PageRequest) ([]*T, error)

	// FindAllSorted returns one page of the collection ordered by sort. A sort
	// without an explicit direction is descending and a page without a size
	// holds types.DefaultPageSize documents.
	FindAllSorted(ctx context.Context, sort types.Sort, page types.PageRequest) ([]*T, error)
}

// FirstLastRepository defines single-document lookups at either end of an
// ordering.
type FirstLastRepository[T any] interface {
	// First returns the document with the lowest identity.
	First(ctx context.Context) (*T, error)

	FirstMatch(ctx context.Context, filter any) (*T, error)

	// FirstSorted returns the first match under sort, ascending unless sort
	// says otherwise. More than one returned document is ErrMultipleResults.
	FirstSorted(ctx context.Context, filter any, sort types.Sort) (*T, error)

	// Last returns the document with the highest identity.
	Last(ctx context.Context) (*T, error)

	LastMatch(ctx context.Context, filter any) (*T, error)

	// LastSorted is FirstSorted with the resolved direction inverted.
	LastSorted(ctx context.Context, filter any, sort types.Sort) (*T, error)
}

// UpdateRepository defines server-side updates. Every update also sets the
// modification timestamp and reports whether the write was acknowledged.
type UpdateRepository[T any] interface {
	UpdateField(ctx context.Context, entity *T, field string, value any) (bool, error)
	UpdateByID(ctx context.Context, id string, updates ...bson.D) (bool, error)
	UpdateEntity(ctx context.Context, entity *T, updates ...bson.D) (bool, error)
	UpdateFieldWhere(ctx context.Context, filter any, field string, value any) (bool, error)
	Update(ctx context.Context, filter any, updates ...bson.D) (bool, error)
}

// Repository combines every operation and exposes the bound collection for
// advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	FindRepository[T]
	FirstLastRepository[T]
	UpdateRepository[T]
	Collection() Collection
	CollectionName() string
}
