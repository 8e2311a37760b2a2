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

package hummer

import (
	"context"
	"sync"

	"github.com/tomoncle/hummer-mongo/database"
	"github.com/tomoncle/hummer-mongo/repository"
	"github.com/tomoncle/hummer-mongo/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil when absent.
	Get(ctx context.Context, id string) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter any) ([]*T, error)

	// Page returns one page of matches with the total match count.
	Page(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) (*types.Pagination[T], error)

	// Exists reports whether any entity matches filter.
	Exists(ctx context.Context, filter any) (bool, error)

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter any) (int64, error)

	// Update applies update documents to the entity with the given identifier
	// and reports whether the store acknowledged the write.
	Update(ctx context.Context, id string, updates ...bson.D) (bool, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id string) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Repository returns the bound repository for advanced use cases.
	Repository() (repository.Repository[T], error)
}

type baseServiceImpl[T any] struct {
	mu   sync.Mutex
	repo repository.Repository[T]
	bind func() repository.Repository[T]
}

// NewService returns a default Service implementation using the generic
// repository bound to the global database on first use.
func NewService[T any, P types.EntityPtr[T]](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{
		bind: func() repository.Repository[T] {
			db := database.GetDB()
			if db == nil {
				return nil
			}
			return repository.ForDatabase[T, P](db, opts...)
		},
	}
}

// NewServiceWith returns a Service over an existing repository.
func NewServiceWith[T any](repo repository.Repository[T]) Service[T] {
	return &baseServiceImpl[T]{repo: repo}
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil && s.bind != nil {
		s.repo = s.bind()
	}
	if s.repo == nil {
		return nil, database.ErrNotConnected
	}
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	if len(model) == 1 {
		return repo.Insert(ctx, model[0])
	}
	return repo.InsertMany(ctx, model)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id string) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter any) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, filter)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, filter any) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Any(ctx, filter)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter any) (int64, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id string, updates ...bson.D) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.UpdateByID(ctx, id, updates...)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id string) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	page = page.WithDefaultSize(types.DefaultPageSize)
	pagination := types.NewDefaultPagination[T](page.GetPageIndex(), page.GetPageSize())

	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	if total == 0 {
		return pagination, nil
	}

	items, err := repo.FindSorted(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}
	pagination.Items = items
	return pagination, nil
}
