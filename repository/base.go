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

// ErrNilEntity is returned when a nil entity pointer is passed to a write.
var ErrNilEntity = errors.New("repository: entity is nil")

type baseRepositoryImpl[T any, P types.EntityPtr[T]] struct {
	coll     Collection
	settings *settings
}

// NewRepository returns a generic repository bound to coll. The entity
// pointer type is inferred: NewRepository[Product](coll).
func NewRepository[T any, P types.EntityPtr[T]](coll Collection, opts ...Option) Repository[T] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	return &baseRepositoryImpl[T, P]{coll: coll, settings: s}
}

// ForDatabase returns a repository bound to the collection named after T.
func ForDatabase[T any, P types.EntityPtr[T]](db *mongo.Database, opts ...Option) Repository[T] {
	return NewRepository[T, P](db.Collection(types.CollectionName[T]()), opts...)
}

func (r *baseRepositoryImpl[T, P]) Collection() Collection { return r.coll }

func (r *baseRepositoryImpl[T, P]) CollectionName() string { return r.coll.Name() }

func (r *baseRepositoryImpl[T, P]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, types.ByID(id))
	return err
}

func (r *baseRepositoryImpl[T, P]) Delete(ctx context.Context, filter any) error {
	_, err := r.coll.DeleteMany(ctx, filterOrAll(filter))
	return err
}

func (r *baseRepositoryImpl[T, P]) Insert(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	r.prepare(entity)
	_, err := r.coll.InsertOne(ctx, entity)
	return err
}

func (r *baseRepositoryImpl[T, P]) InsertMany(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	for _, entity := range entities {
		if entity == nil {
			return ErrNilEntity
		}
	}
	for _, entity := range entities {
		r.prepare(entity)
	}
	_, err := r.coll.InsertMany(ctx, entities)
	return err
}

// prepare assigns an identity and stamps unset timestamps before a write.
func (r *baseRepositoryImpl[T, P]) prepare(entity *T) {
	e := P(entity)
	if e.GetID() == "" {
		e.SetID(r.settings.newID())
	}
	now := r.settings.now()
	if e.GetCreatedOn().IsZero() {
		e.SetCreatedOn(now)
	}
	if e.GetModifiedOn().IsZero() {
		e.SetModifiedOn(now)
	}
}

func (r *baseRepositoryImpl[T, P]) GetByID(ctx context.Context, id string) (*T, error) {
	entities, err := r.find(ctx, types.ByID(id), options.Find().SetLimit(1))
	if err != nil {
		return nil, err
	}
	return firstOrDefault(entities), nil
}

func (r *baseRepositoryImpl[T, P]) Any(ctx context.Context, filter any) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filterOrAll(filter), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *baseRepositoryImpl[T, P]) Count(ctx context.Context, filter any) (int64, error) {
	return r.coll.CountDocuments(ctx, filterOrAll(filter))
}

func (r *baseRepositoryImpl[T, P]) Find(ctx context.Context, filter any) ([]*T, error) {
	return r.find(ctx, filterOrAll(filter))
}

func (r *baseRepositoryImpl[T, P]) FindPage(ctx context.Context, filter any, page types.PageRequest) ([]*T, error) {
	return r.findPage(ctx, filterOrAll(filter), types.SortBy(types.IDField).Asc(), page)
}

func (r *baseRepositoryImpl[T, P]) FindSorted(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) ([]*T, error) {
	return r.findPage(ctx, filterOrAll(filter), sort.Resolve(types.FindDefaultDirection), page)
}

func (r *baseRepositoryImpl[T, P]) FindAll(ctx context.Context) ([]*T, error) {
	return r.find(ctx, types.All())
}

func (r *baseRepositoryImpl[T, P]) FindAllPage(ctx context.Context, page types.PageRequest) ([]*T, error) {
	return r.FindPage(ctx, types.All(), page)
}

func (r *baseRepositoryImpl[T, P]) FindAllSorted(ctx context.Context, sort types.Sort, page types.PageRequest) ([]*T, error) {
	return r.findPage(ctx, types.All(), sort.Resolve(types.FindAllDefaultDirection), page.WithDefaultSize(types.DefaultPageSize))
}

func (r *baseRepositoryImpl[T, P]) First(ctx context.Context) (*T, error) {
	entities, err := r.findPage(ctx, types.All(), types.SortBy(types.IDField).Asc(), types.NewPageRequest(0, 1))
	if err != nil {
		return nil, err
	}
	return firstOrDefault(entities), nil
}

func (r *baseRepositoryImpl[T, P]) FirstMatch(ctx context.Context, filter any) (*T, error) {
	return r.FirstSorted(ctx, filter, types.SortBy(types.IDField))
}

func (r *baseRepositoryImpl[T, P]) FirstSorted(ctx context.Context, filter any, sort types.Sort) (*T, error) {
	entities, err := r.findPage(ctx, filterOrAll(filter), sort.Resolve(types.FirstDefaultDirection), types.NewPageRequest(0, 1))
	if err != nil {
		return nil, err
	}
	return singleOrDefault(entities)
}

func (r *baseRepositoryImpl[T, P]) Last(ctx context.Context) (*T, error) {
	entities, err := r.findPage(ctx, types.All(), types.SortBy(types.IDField).Desc(), types.NewPageRequest(0, 1))
	if err != nil {
		return nil, err
	}
	return firstOrDefault(entities), nil
}

func (r *baseRepositoryImpl[T, P]) LastMatch(ctx context.Context, filter any) (*T, error) {
	return r.LastSorted(ctx, filter, types.SortBy(types.IDField))
}

func (r *baseRepositoryImpl[T, P]) LastSorted(ctx context.Context, filter any, sort types.Sort) (*T, error) {
	return r.FirstSorted(ctx, filter, sort.Resolve(types.LastDefaultDirection).Invert())
}

func (r *baseRepositoryImpl[T, P]) UpdateField(ctx context.Context, entity *T, field string, value any) (bool, error) {
	return r.UpdateEntity(ctx, entity, types.Set(field, value))
}

func (r *baseRepositoryImpl[T, P]) UpdateByID(ctx context.Context, id string, updates ...bson.D) (bool, error) {
	return r.Update(ctx, types.ByID(id), updates...)
}

func (r *baseRepositoryImpl[T, P]) UpdateEntity(ctx context.Context, entity *T, updates ...bson.D) (bool, error) {
	if entity == nil {
		return false, ErrNilEntity
	}
	return r.UpdateByID(ctx, P(entity).GetID(), updates...)
}

func (r *baseRepositoryImpl[T, P]) UpdateFieldWhere(ctx context.Context, filter any, field string, value any) (bool, error) {
	return r.Update(ctx, filter, types.Set(field, value))
}

func (r *baseRepositoryImpl[T, P]) Update(ctx context.Context, filter any, updates ...bson.D) (bool, error) {
	all := make([]bson.D, 0, len(updates)+1)
	all = append(all, updates...)
	all = append(all, types.CurrentDate(types.ModifiedOnField))
	res, err := r.coll.UpdateMany(ctx, filterOrAll(filter), types.Combine(all...))
	if err != nil {
		return false, err
	}
	return res.Acknowledged, nil
}

func (r *baseRepositoryImpl[T, P]) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// findPage runs a sorted, paged query. sort must be resolved.
func (r *baseRepositoryImpl[T, P]) findPage(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) ([]*T, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: sort.Field, Value: sort.Direction.SortValue()}}).
		SetSkip(page.GetSkip())
	if limit := page.GetLimit(); limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, filter, opts)
}

// filterOrAll treats a nil filter as matching every document.
func filterOrAll(filter any) any {
	if filter == nil {
		return types.All()
	}
	return filter
}

func firstOrDefault[T any](entities []*T) *T {
	if len(entities) == 0 {
		return nil
	}
	return entities[0]
}

func singleOrDefault[T any](entities []*T) (*T, error) {
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	default:
		return nil, ErrMultipleResults
	}
}
