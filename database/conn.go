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
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
)

// GetDB returns the global database handle, or nil before InitDB.
func GetDB() *mongo.Database {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetDatabase()
	}
	return nil
}

// GetClient returns the global client, or nil before InitDB.
func GetClient() *mongo.Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetClient()
	}
	return nil
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetConfig returns the configuration passed to InitDB.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// InitDB connects the global client using the provided configuration and
// returns the configured database.
func InitDB(cfg *Config) (*mongo.Database, error) {
	return InitDBContext(context.Background(), cfg)
}

// InitDBContext is InitDB with a caller supplied context for the initial
// connection.
func InitDBContext(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalMu.Lock()
	previous := globalFactory
	globalFactory = factory
	globalConfig = cfg
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return manager.GetDatabase(), nil
}

// CloseDB disconnects the global client.
func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory = nil
	globalMu.Unlock()
	if factory != nil {
		return factory.Close()
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global pool statistics.
func GetDatabaseStats() *DBStats {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}
