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

	"github.com/gammazero/workerpool"
	"github.com/tomoncle/hummer-mongo/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Future is the pending result of an asynchronous repository call.
type Future[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Done is closed once the call has completed.
func (f *Future[V]) Done() <-chan struct{} { return f.done }

// Await blocks until the call completes or ctx ends, whichever comes first.
// Ending ctx does not cancel the call itself.
func (f *Future[V]) Await(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Result blocks until the call completes.
func (f *Future[V]) Result() (V, error) {
	<-f.done
	return f.value, f.err
}

func submit[V any](pool *workerpool.WorkerPool, fn func() (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	task := func() {
		defer close(f.done)
		f.value, f.err = fn()
	}
	if pool != nil {
		pool.Submit(task)
	} else {
		go task()
	}
	return f
}

func submitErr(pool *workerpool.WorkerPool, fn func() error) *Future[struct{}] {
	return submit(pool, func() (struct{}, error) { return struct{}{}, fn() })
}

// AsyncRepository runs Repository calls without blocking the caller. Each
// method has the semantics and result of its blocking counterpart.
type AsyncRepository[T any] struct {
	repo Repository[T]
	pool *workerpool.WorkerPool
}

// NewAsyncRepository wraps repo. Calls run on pool when it is non-nil, each on
// its own goroutine otherwise. The caller owns pool and stops it.
func NewAsyncRepository[T any](repo Repository[T], pool *workerpool.WorkerPool) *AsyncRepository[T] {
	return &AsyncRepository[T]{repo: repo, pool: pool}
}

// Blocking returns the wrapped repository.
func (a *AsyncRepository[T]) Blocking() Repository[T] { return a.repo }

func (a *AsyncRepository[T]) DeleteByIDAsync(ctx context.Context, id string) *Future[struct{}] {
	return submitErr(a.pool, func() error { return a.repo.DeleteByID(ctx, id) })
}

func (a *AsyncRepository[T]) DeleteAsync(ctx context.Context, filter any) *Future[struct{}] {
	return submitErr(a.pool, func() error { return a.repo.Delete(ctx, filter) })
}

func (a *AsyncRepository[T]) InsertAsync(ctx context.Context, entity *T) *Future[struct{}] {
	return submitErr(a.pool, func() error { return a.repo.Insert(ctx, entity) })
}

func (a *AsyncRepository[T]) InsertManyAsync(ctx context.Context, entities []*T) *Future[struct{}] {
	return submitErr(a.pool, func() error { return a.repo.InsertMany(ctx, entities) })
}

func (a *AsyncRepository[T]) GetByIDAsync(ctx context.Context, id string) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.GetByID(ctx, id) })
}

func (a *AsyncRepository[T]) AnyAsync(ctx context.Context, filter any) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.Any(ctx, filter) })
}

func (a *AsyncRepository[T]) CountAsync(ctx context.Context, filter any) *Future[int64] {
	return submit(a.pool, func() (int64, error) { return a.repo.Count(ctx, filter) })
}

func (a *AsyncRepository[T]) FindAsync(ctx context.Context, filter any) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.Find(ctx, filter) })
}

func (a *AsyncRepository[T]) FindPageAsync(ctx context.Context, filter any, page types.PageRequest) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.FindPage(ctx, filter, page) })
}

func (a *AsyncRepository[T]) FindSortedAsync(ctx context.Context, filter any, sort types.Sort, page types.PageRequest) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.FindSorted(ctx, filter, sort, page) })
}

func (a *AsyncRepository[T]) FindAllAsync(ctx context.Context) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.FindAll(ctx) })
}

func (a *AsyncRepository[T]) FindAllPageAsync(ctx context.Context, page types.PageRequest) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.FindAllPage(ctx, page) })
}

func (a *AsyncRepository[T]) FindAllSortedAsync(ctx context.Context, sort types.Sort, page types.PageRequest) *Future[[]*T] {
	return submit(a.pool, func() ([]*T, error) { return a.repo.FindAllSorted(ctx, sort, page) })
}

func (a *AsyncRepository[T]) FirstAsync(ctx context.Context) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.First(ctx) })
}

func (a *AsyncRepository[T]) FirstMatchAsync(ctx context.Context, filter any) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.FirstMatch(ctx, filter) })
}

func (a *AsyncRepository[T]) FirstSortedAsync(ctx context.Context, filter any, sort types.Sort) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.FirstSorted(ctx, filter, sort) })
}

func (a *AsyncRepository[T]) LastAsync(ctx context.Context) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.Last(ctx) })
}

func (a *AsyncRepository[T]) LastMatchAsync(ctx context.Context, filter any) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.LastMatch(ctx, filter) })
}

func (a *AsyncRepository[T]) LastSortedAsync(ctx context.Context, filter any, sort types.Sort) *Future[*T] {
	return submit(a.pool, func() (*T, error) { return a.repo.LastSorted(ctx, filter, sort) })
}

func (a *AsyncRepository[T]) UpdateFieldAsync(ctx context.Context, entity *T, field string, value any) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.UpdateField(ctx, entity, field, value) })
}

func (a *AsyncRepository[T]) UpdateByIDAsync(ctx context.Context, id string, updates ...bson.D) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.UpdateByID(ctx, id, updates...) })
}

func (a *AsyncRepository[T]) UpdateEntityAsync(ctx context.Context, entity *T, updates ...bson.D) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.UpdateEntity(ctx, entity, updates...) })
}

func (a *AsyncRepository[T]) UpdateFieldWhereAsync(ctx context.Context, filter any, field string, value any) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.UpdateFieldWhere(ctx, filter, field, value) })
}

func (a *AsyncRepository[T]) UpdateAsync(ctx context.Context, filter any, updates ...bson.D) *Future[bool] {
	return submit(a.pool, func() (bool, error) { return a.repo.Update(ctx, filter, updates...) })
}
