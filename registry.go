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
	"fmt"
	"reflect"
	"sync"

	"github.com/spf13/viper"
	"github.com/tomoncle/hummer-mongo/database"
	"github.com/tomoncle/hummer-mongo/repository"
	"github.com/tomoncle/hummer-mongo/types"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CollectionProvider returns the collection a repository binds to.
type CollectionProvider func(name string) repository.Collection

// Registry holds one repository per entity type.
type Registry struct {
	mu         sync.RWMutex
	collection CollectionProvider
	opts       []repository.Option
	repos      map[reflect.Type]any
}

// NewRegistry returns a registry binding repositories to collections of db.
func NewRegistry(db *mongo.Database, opts ...repository.Option) *Registry {
	return NewRegistryWith(func(name string) repository.Collection {
		return db.Collection(name)
	}, opts...)
}

// NewRegistryWith returns a registry binding repositories to the collections
// returned by provider.
func NewRegistryWith(provider CollectionProvider, opts ...repository.Option) *Registry {
	return &Registry{
		collection: provider,
		opts:       opts,
		repos:      make(map[reflect.Type]any),
	}
}

// RegisterMongoDB reads the MongoDBSettings section from v, connects the
// global client and returns a registry over its database.
func RegisterMongoDB(v *viper.Viper, opts ...repository.Option) (*Registry, error) {
	cfg, err := database.ConfigFromViper(v, database.SettingsSection)
	if err != nil {
		return nil, err
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewRegistry(db, opts...), nil
}

// Register binds a repository for T to the collection named after T. Calling
// it again for the same type returns the existing repository.
func Register[T any, P types.EntityPtr[T]](reg *Registry) repository.Repository[T] {
	key := reflect.TypeFor[T]()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if repo, ok := reg.repos[key]; ok {
		return repo.(repository.Repository[T])
	}
	repo := repository.NewRepository[T, P](reg.collection(types.CollectionName[T]()), reg.opts...)
	reg.repos[key] = repo
	return repo
}

// RegisterRepository binds repo as the repository for T, replacing any
// previous one.
func RegisterRepository[T any](reg *Registry, repo repository.Repository[T]) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.repos[reflect.TypeFor[T]()] = repo
}

// Resolve returns the repository registered for T.
func Resolve[T any](reg *Registry) (repository.Repository[T], error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	repo, ok := reg.repos[reflect.TypeFor[T]()]
	if !ok {
		return nil, fmt.Errorf("no repository registered for %s", reflect.TypeFor[T]())
	}
	return repo.(repository.Repository[T]), nil
}

// MustResolve is Resolve that panics when T is not registered.
func MustResolve[T any](reg *Registry) repository.Repository[T] {
	repo, err := Resolve[T](reg)
	if err != nil {
		panic(err)
	}
	return repo
}
