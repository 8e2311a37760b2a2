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
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	client          *mongo.Client
	database        *mongo.Database
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	healthStop      chan struct{}
	healthDone      chan struct{}
	pool            poolCounters
}

// poolCounters is fed by driver pool and command events.
type poolCounters struct {
	open             atomic.Int64
	inUse            atomic.Int64
	checkOutFailures atomic.Int64
	cleared          atomic.Int64
	commandsExecuted atomic.Int64
	commandsFailed   atomic.Int64
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by the MongoDB
// driver. If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		healthStatus: &HealthStatus{},
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.client != nil {
		return nil
	}

	client, err := mongo.Connect(dm.clientOptions())
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database client: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctxTimeout, readpref.Primary()); err != nil {
		dm.lastError = err
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.client = client
	dm.database = client.Database(dm.config.Database)
	dm.connected = true
	dm.lastError = nil

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected successfully:", "database", dm.config.Database, "uri", redactURI(dm.config.URI))
	}
	return nil
}

func (dm *defaultDatabaseManager) clientOptions() *options.ClientOptions {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	opts := options.Client().
		ApplyURI(dm.config.URI).
		SetConnectTimeout(dm.config.ConnectTimeout).
		SetPoolMonitor(&event.PoolMonitor{Event: dm.onPoolEvent})

	if dm.config.AppName != "" {
		opts.SetAppName(dm.config.AppName)
	}
	if dm.config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(dm.config.MaxPoolSize)
	}
	if dm.config.MinPoolSize > 0 {
		opts.SetMinPoolSize(dm.config.MinPoolSize)
	}
	if dm.config.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(dm.config.MaxConnIdleTime)
	}
	if dm.config.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(dm.config.ServerSelectionTimeout)
	}

	hook := &CommandHook{
		envName:  "MONGODEBUG",
		enabled:  dm.config.EnableQueryLog,
		slowTime: dm.config.SlowQueryTime,
		logger:   dm.logger,
		counters: &dm.pool,
	}
	opts.SetMonitor(hook.Monitor())
	return opts
}

func (dm *defaultDatabaseManager) onPoolEvent(evt *event.PoolEvent) {
	switch evt.Type {
	case event.ConnectionCreated:
		dm.pool.open.Add(1)
	case event.ConnectionClosed:
		dm.pool.open.Add(-1)
	case event.ConnectionCheckedOut:
		dm.pool.inUse.Add(1)
	case event.ConnectionCheckedIn:
		dm.pool.inUse.Add(-1)
	case event.ConnectionCheckOutFailed:
		dm.pool.checkOutFailures.Add(1)
	case event.ConnectionPoolCleared:
		dm.pool.cleared.Add(1)
	}
}

func (dm *defaultDatabaseManager) Disconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.stopHealthCheckLoop()

	if dm.client != nil {
		err := dm.client.Disconnect(ctx)
		dm.client = nil
		dm.database = nil
		dm.connected = false

		if dm.logger != nil {
			if err != nil {
				dm.logger.Error("Failed to close database connection", "error", err)
			} else {
				dm.logger.Info("Database connection closed")
			}
		}

		return err
	}

	return nil
}

func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}

	if err := dm.Disconnect(ctx); err != nil {
		if dm.logger != nil {
			dm.logger.Warn("Error disconnecting existing connection", "error", err)
		}
	}

	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	client := dm.client
	dm.mu.RUnlock()

	if client == nil {
		return ErrNotConnected
	}

	return client.Ping(ctx, readpref.Primary())
}

func (dm *defaultDatabaseManager) GetClient() *mongo.Client {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.client
}

func (dm *defaultDatabaseManager) GetDatabase() *mongo.Database {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.database
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
		MaxPoolSize:   dm.config.MaxPoolSize,
	}

	if dm.client == nil {
		status.Healthy = false
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := dm.client.Ping(ctxTimeout, readpref.Primary())
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	status.ActiveConns = dm.pool.inUse.Load()
	status.IdleConns = idleConns(dm.pool.open.Load(), status.ActiveConns)

	dm.healthStatus = status
	dm.lastHealthCheck = start

	return status
}

// startHealthCheck starts the periodic health check loop unless it is
// already running. dm.mu must be held.
func (dm *defaultDatabaseManager) startHealthCheck() {
	if dm.healthStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	dm.healthStop, dm.healthDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(dm.config.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := dm.HealthCheck(ctx)
				cancel()
				if !status.Healthy && dm.config.EnableReconnect {
					dm.handleReconnect()
				}

			case <-stop:
				return
			}
		}
	}()
}

// stopHealthCheckLoop signals the running health check loop to exit.
// dm.mu must be held.
func (dm *defaultDatabaseManager) stopHealthCheckLoop() {
	if dm.healthStop == nil {
		return
	}
	close(dm.healthStop)
	dm.healthStop, dm.healthDone = nil, nil
}

// handleReconnect retries Reconnect with exponential backoff, starting at
// ReconnectInterval, at most MaxReconnectTries times.
func (dm *defaultDatabaseManager) handleReconnect() {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = dm.config.ReconnectInterval
	policy.MaxElapsedTime = 0

	var b backoff.BackOff = policy
	if dm.config.MaxReconnectTries > 0 {
		b = backoff.WithMaxRetries(policy, uint64(dm.config.MaxReconnectTries-1))
	}

	attempt := 0
	operation := func() error {
		attempt++
		if dm.logger != nil {
			dm.logger.Info("Starting database reconnect", "try", attempt)
		}
		ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
		defer cancel()
		return dm.Reconnect(ctx)
	}
	notify := func(err error, next time.Duration) {
		if dm.logger != nil {
			dm.logger.Warn("Reconnect failed", "error", err, "try", attempt, "next_try_in", next)
		}
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", attempt, "error", err)
		}
		return
	}
	if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded", "tries", attempt)
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	open := dm.pool.open.Load()
	inUse := dm.pool.inUse.Load()
	return &DBStats{
		MaxPoolSize:      dm.config.MaxPoolSize,
		OpenConns:        open,
		InUse:            inUse,
		Idle:             idleConns(open, inUse),
		CheckOutFailures: dm.pool.checkOutFailures.Load(),
		PoolCleared:      dm.pool.cleared.Load(),
		CommandsExecuted: dm.pool.commandsExecuted.Load(),
		CommandsFailed:   dm.pool.commandsFailed.Load(),
	}
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

func idleConns(open, inUse int64) int64 {
	if idle := open - inUse; idle > 0 {
		return idle
	}
	return 0
}
