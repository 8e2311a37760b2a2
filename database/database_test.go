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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()
	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
	assert.Equal(t, uint64(100), cfg.MaxPoolSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.True(t, cfg.EnableReconnect)
}

func TestSettingsConfigLoader(t *testing.T) {
	s := &Settings{ConnectionStrings: "mongodb://db:27017", DatabaseName: "shop"}
	cfg := s.ConfigLoader()
	assert.Equal(t, "mongodb://db:27017", cfg.ConnectionConfig.URI)
	assert.Equal(t, "shop", cfg.ConnectionConfig.Database)
	assert.Equal(t, uint64(100), cfg.ConnectionConfig.MaxPoolSize)
}

func TestParseConfigFullDocument(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
connection_config:
  uri: mongodb://user:pw@db:27017
  database: shop
  max_pool_size: 20
  connect_timeout: 3s
  enable_query_log: true
`))
	require.NoError(t, err)
	cc := cfg.ConnectionConfig
	assert.Equal(t, "mongodb://user:pw@db:27017", cc.URI)
	assert.Equal(t, "shop", cc.Database)
	assert.Equal(t, uint64(20), cc.MaxPoolSize)
	assert.Equal(t, 3*time.Second, cc.ConnectTimeout)
	assert.True(t, cc.EnableQueryLog)
	assert.Equal(t, 30*time.Second, cc.ServerSelectionTimeout)
}

func TestParseConfigSettingsSection(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
MongoDBSettings:
  ConnectionStrings: mongodb://db:27017
  DatabaseName: inventory
`))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.ConnectionConfig.URI)
	assert.Equal(t, "inventory", cfg.ConnectionConfig.Database)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig([]byte("connection_config: [oops"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mongo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection_config:\n  database: files\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "files", cfg.ConnectionConfig.Database)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigFromViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
MongoDBSettings:
  ConnectionStrings: mongodb://viper:27017
  DatabaseName: vdb
`)))

	cfg, err := ConfigFromViper(v, "")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://viper:27017", cfg.ConnectionConfig.URI)
	assert.Equal(t, "vdb", cfg.ConnectionConfig.Database)

	_, err = ConfigFromViper(v, "Other")
	assert.Error(t, err)
	_, err = SettingsFromViper(nil, "")
	assert.Error(t, err)
}

func TestFactoryEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb+srv://cluster.example.net")
	t.Setenv("MONGO_DATABASE", "envdb")
	t.Setenv("MONGO_MAX_POOL_SIZE", "7")
	t.Setenv("MONGO_MIN_POOL_SIZE", "2")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "4")
	t.Setenv("MONGO_ENABLE_RECONNECT", "false")
	t.Setenv("MONGO_ENABLE_QUERY_LOG", "true")
	t.Setenv("MONGO_APP_NAME", "svc")

	cfg := DefaultConnectionConfig()
	f := NewDatabaseFactory()
	manager, err := f.CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, manager)
	assert.Same(t, manager, f.GetManager())

	assert.Equal(t, "mongodb+srv://cluster.example.net", cfg.URI)
	assert.Equal(t, "envdb", cfg.Database)
	assert.Equal(t, uint64(7), cfg.MaxPoolSize)
	assert.Equal(t, uint64(2), cfg.MinPoolSize)
	assert.Equal(t, 4*time.Second, cfg.ConnectTimeout)
	assert.False(t, cfg.EnableReconnect)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, "svc", cfg.AppName)
}

func TestValidateConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Database = "db"
	assert.NoError(t, ValidateConnectionConfig(cfg))

	bad := *cfg
	bad.URI = "postgres://localhost"
	assert.ErrorContains(t, ValidateConnectionConfig(&bad), "unsupported connection string")

	noDB := *cfg
	noDB.Database = ""
	assert.Error(t, ValidateConnectionConfig(&noDB))

	pool := *cfg
	pool.MinPoolSize = 200
	assert.Error(t, ValidateConnectionConfig(&pool))
}

func TestFactoryWithoutManager(t *testing.T) {
	f := NewDatabaseFactory()
	assert.Nil(t, f.GetDatabase())
	assert.Nil(t, f.GetClient())
	assert.NoError(t, f.Close())
	assert.Error(t, f.InitializeDatabase(context.Background()))
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
	assert.Equal(t, &DBStats{}, f.GetStats())

	_, err := f.CreateFromConfig(nil)
	assert.Error(t, err)
}

func TestGlobalsBeforeInit(t *testing.T) {
	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Nil(t, GetClient())
	assert.Nil(t, GetDatabaseManager())
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
	status := GetHealthStatus(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)

	_, err := InitDB(nil)
	assert.Error(t, err)
}

func TestManagerNotConnected(t *testing.T) {
	dm := NewDatabaseManager(nil)
	assert.ErrorIs(t, dm.Ping(context.Background()), ErrNotConnected)
	assert.Nil(t, dm.GetClient())
	assert.Nil(t, dm.GetDatabase())
	assert.NoError(t, dm.Disconnect(context.Background()))

	status := dm.HealthCheck(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, uint64(100), status.MaxPoolSize)
}

func TestManagerPoolCounters(t *testing.T) {
	dm := NewDatabaseManager(nil).(*defaultDatabaseManager)
	for _, typ := range []string{
		event.ConnectionCreated, event.ConnectionCreated, event.ConnectionCreated,
		event.ConnectionCheckedOut, event.ConnectionCheckedOut, event.ConnectionCheckedIn,
		event.ConnectionClosed, event.ConnectionCheckOutFailed, event.ConnectionPoolCleared,
	} {
		dm.onPoolEvent(&event.PoolEvent{Type: typ})
	}

	stats := dm.GetStats()
	assert.Equal(t, int64(2), stats.OpenConns)
	assert.Equal(t, int64(1), stats.InUse)
	assert.Equal(t, int64(1), stats.Idle)
	assert.Equal(t, int64(1), stats.CheckOutFailures)
	assert.Equal(t, int64(1), stats.PoolCleared)
	assert.Equal(t, uint64(100), stats.MaxPoolSize)
	assert.Equal(t, int64(0), idleConns(1, 3))
}

func TestManagerConnectFailsFast(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.URI = "mongodb://127.0.0.1:1"
	cfg.Database = "none"
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.ServerSelectionTimeout = 200 * time.Millisecond
	cfg.HealthCheckInterval = 0

	dm := NewDatabaseManager(cfg)
	err := dm.Connect(context.Background())
	require.Error(t, err)
	assert.Nil(t, dm.GetClient())
}

func TestManagerHealthLoopRestartsAfterDisconnect(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.HealthCheckInterval = time.Hour
	dm := NewDatabaseManager(cfg).(*defaultDatabaseManager)

	start := func() chan struct{} {
		dm.mu.Lock()
		defer dm.mu.Unlock()
		dm.startHealthCheck()
		return dm.healthDone
	}

	first := start()
	require.NotNil(t, first)
	assert.Equal(t, first, start(), "a running loop is not started twice")

	require.NoError(t, dm.Disconnect(context.Background()))
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("health loop still running after Disconnect")
	}
	assert.Nil(t, dm.healthStop)

	second := start()
	require.NotNil(t, second)
	assert.NotEqual(t, first, second)
	select {
	case <-second:
		t.Fatal("restarted health loop exited")
	default:
	}

	require.NoError(t, dm.Disconnect(context.Background()))
	<-second
}

func TestManagerReconnectGivesUpAfterMaxTries(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.URI = "mongodb://127.0.0.1:1"
	cfg.Database = "none"
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.ServerSelectionTimeout = 100 * time.Millisecond
	cfg.HealthCheckInterval = 0
	cfg.ReconnectInterval = 10 * time.Millisecond
	cfg.MaxReconnectTries = 2

	logger := &recordingLogger{}
	dm := NewDatabaseManager(cfg).(*defaultDatabaseManager)
	dm.SetLogger(logger)

	dm.handleReconnect()

	assert.Equal(t, []string{"Reconnect failed"}, logger.warnings)
	assert.Nil(t, dm.GetClient())
}

func TestIsStoreError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	cases := []struct {
		name string
		err  error
		is   bool
		kind StoreError
	}{
		{"nil", nil, false, UnknownErr},
		{"plain", errors.New("x"), false, UnknownErr},
		{"no documents", mongo.ErrNoDocuments, true, NoDocumentsErr},
		{"wrapped no documents", fmt.Errorf("get: %w", mongo.ErrNoDocuments), true, NoDocumentsErr},
		{"disconnected", mongo.ErrClientDisconnected, true, ClientDisconnectedErr},
		{"not connected", ErrNotConnected, true, NotConnectedErr},
		{"duplicate", dup, true, DuplicateKeyErr},
		{"deadline", context.DeadlineExceeded, true, TimeoutErr},
		{"write", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121}}}, true, WriteErr},
		{"write concern", mongo.WriteException{WriteConcernError: &mongo.WriteConcernError{Code: 64}}, true, WriteConcernErr},
		{"command", mongo.CommandError{Code: 13, Name: "Unauthorized"}, true, CommandErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is, kind := IsStoreError(tc.err)
			assert.Equal(t, tc.is, is)
			assert.Equal(t, tc.kind, kind)
		})
	}
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", StoreError(99).String())
}

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "mongodb://user:xxxxx@db:27017/admin", redactURI("mongodb://user:secret@db:27017/admin"))
	assert.Equal(t, "mongodb://db:27017", redactURI("mongodb://db:27017"))
	assert.Equal(t, "mongodb://user@db", redactURI("mongodb://user@db"))
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) SetLevel(LogLevel)                 {}
func (l *recordingLogger) Debug(string, ...interface{})      {}
func (l *recordingLogger) Info(string, ...interface{})       {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) { l.warnings = append(l.warnings, msg) }
func (l *recordingLogger) Error(string, ...interface{})      {}

func runCommand(h *CommandHook, id int64, name string, d time.Duration, failure error) {
	mon := h.Monitor()
	ctx := context.Background()
	mon.Started(ctx, &event.CommandStartedEvent{
		CommandName:  name,
		DatabaseName: "shop",
		RequestID:    id,
	})
	finished := event.CommandFinishedEvent{CommandName: name, DatabaseName: "shop", RequestID: id, Duration: d}
	if failure != nil {
		mon.Failed(ctx, &event.CommandFailedEvent{CommandFinishedEvent: finished, Failure: failure})
		return
	}
	mon.Succeeded(ctx, &event.CommandSucceededEvent{CommandFinishedEvent: finished})
}

func TestCommandHookVerbose(t *testing.T) {
	var buf bytes.Buffer
	h := NewCommandHook("", true, true, 0, &buf, nil)
	runCommand(h, 1, "find", time.Millisecond, nil)
	out := buf.String()
	assert.Contains(t, out, "[MONGO]")
	assert.Contains(t, out, ansiGreen)
}

func TestCommandHookFailuresOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewCommandHook("", true, false, 0, &buf, nil)
	runCommand(h, 1, "insert", time.Millisecond, nil)
	assert.Empty(t, buf.String())

	runCommand(h, 2, "insert", time.Millisecond, errors.New("E11000"))
	assert.Contains(t, buf.String(), "E11000")
}

func TestCommandHookEnvironment(t *testing.T) {
	var buf bytes.Buffer
	h := NewCommandHook("HUMMER_TEST_MONGODEBUG", false, false, 0, &buf, nil)
	runCommand(h, 1, "delete", time.Millisecond, nil)
	assert.Empty(t, buf.String())

	t.Setenv("HUMMER_TEST_MONGODEBUG", "2")
	runCommand(h, 2, "delete", time.Millisecond, nil)
	assert.Contains(t, buf.String(), ansiMagenta)
}

func TestCommandHookSlowCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := &recordingLogger{}
	h := NewCommandHook("", false, false, 10*time.Millisecond, &buf, logger)
	runCommand(h, 1, "update", time.Second, nil)
	assert.Len(t, logger.warnings, 1)
	assert.Empty(t, buf.String())

	h.enabled = true
	runCommand(h, 2, "update", time.Second, nil)
	assert.Contains(t, buf.String(), "[MONGO_SLOW]")
	assert.Contains(t, buf.String(), ansiBGYellow)
}

func TestCommandHookCounters(t *testing.T) {
	counters := &poolCounters{}
	h := &CommandHook{counters: counters}
	runCommand(h, 1, "find", time.Millisecond, nil)
	runCommand(h, 2, "find", time.Millisecond, errors.New("x"))
	assert.Equal(t, int64(2), counters.commandsExecuted.Load())
	assert.Equal(t, int64(1), counters.commandsFailed.Load())
}

func TestCommandKind(t *testing.T) {
	assert.Equal(t, "SELECT", commandKind("getMore"))
	assert.Equal(t, "UPDATE", commandKind("findAndModify"))
	assert.Equal(t, "OTHER", commandKind("ping"))
}

func TestDefaultLoggerFields(t *testing.T) {
	l := GetLogger()
	require.NotNil(t, l)
	assert.NotPanics(t, func() {
		l.Info("connected", "database", "shop", "dangling")
		l.SetLevel(LogLevelWarn)
		l.Debug("hidden")
	})
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
