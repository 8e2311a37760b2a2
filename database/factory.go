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
	"os"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var supportedSchemes = []string{"mongodb://", "mongodb+srv://"}

// BaseDatabaseFactory creates and owns a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration, applying environment overrides and setting the factory logger.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	f.overrideFromEnv(cfg)

	if err := ValidateConnectionConfig(cfg); err != nil {
		return nil, err
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// ValidateConnectionConfig checks the connection string scheme and that a
// database name is present.
func ValidateConnectionConfig(cfg *ConnectionConfig) error {
	supported := false
	for _, scheme := range supportedSchemes {
		if strings.HasPrefix(cfg.URI, scheme) {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported connection string: %q, supported schemes: %v", redactURI(cfg.URI), supportedSchemes)
	}
	if cfg.Database == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if cfg.MinPoolSize > 0 && cfg.MaxPoolSize > 0 && cfg.MinPoolSize > cfg.MaxPoolSize {
		return fmt.Errorf("min pool size %d exceeds max pool size %d", cfg.MinPoolSize, cfg.MaxPoolSize)
	}
	return nil
}

// overrideFromEnv overrides configuration values from environment variables.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.URI = uri
	}
	if name := os.Getenv("MONGO_DATABASE"); name != "" {
		cfg.Database = name
	}
	if app := os.Getenv("MONGO_APP_NAME"); app != "" {
		cfg.AppName = app
	}
	// Connection pool config
	if maxPool := os.Getenv("MONGO_MAX_POOL_SIZE"); maxPool != "" {
		if val, err := strconv.ParseUint(maxPool, 10, 64); err == nil {
			cfg.MaxPoolSize = val
		}
	}
	if minPool := os.Getenv("MONGO_MIN_POOL_SIZE"); minPool != "" {
		if val, err := strconv.ParseUint(minPool, 10, 64); err == nil {
			cfg.MinPoolSize = val
		}
	}
	if timeout := os.Getenv("MONGO_CONNECT_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil {
			cfg.ConnectTimeout = time.Duration(val) * time.Second
		}
	}

	if enableReconnect := os.Getenv("MONGO_ENABLE_RECONNECT"); enableReconnect != "" {
		cfg.EnableReconnect = enableReconnect == "true"
	}
	if enableQueryLog := os.Getenv("MONGO_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		cfg.EnableQueryLog = enableQueryLog == "true"
	}
}

// InitializeDatabase connects the manager.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDatabase returns the database handle, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDatabase() *mongo.Database {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDatabase()
}

// GetClient returns the client, or nil if not initialized.
func (f *BaseDatabaseFactory) GetClient() *mongo.Client {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetClient()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close disconnects the client managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.manager.Disconnect(ctx)
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			Healthy:       false,
			Connected:     false,
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
