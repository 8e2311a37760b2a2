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
	"time"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gopkg.in/yaml.v3"
)

// AbstractDatabaseManager defines the operations for managing a MongoDB
// client connection and reporting its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetClient() *mongo.Client
	GetDatabase() *mongo.Database
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the server.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int64         `json:"active_conns"`
	IdleConns     int64         `json:"idle_conns"`
	MaxPoolSize   uint64        `json:"max_pool_size"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats reports connection pool counters collected from driver pool events.
type DBStats struct {
	MaxPoolSize      uint64 `json:"max_pool_size"`
	OpenConns        int64  `json:"open_conns"`
	InUse            int64  `json:"in_use"`
	Idle             int64  `json:"idle"`
	CheckOutFailures int64  `json:"check_out_failures"`
	PoolCleared      int64  `json:"pool_cleared"`
	CommandsFailed   int64  `json:"commands_failed"`
	CommandsExecuted int64  `json:"commands_executed"`
}

// ConnectionConfig describes how to reach a MongoDB deployment and tune the
// driver's pool.
type ConnectionConfig struct {
	URI                    string        `json:"uri" yaml:"uri" mapstructure:"uri"`
	Database               string        `json:"database" yaml:"database" mapstructure:"database"`
	AppName                string        `json:"app_name" yaml:"app_name" mapstructure:"app_name"`
	MaxPoolSize            uint64        `json:"max_pool_size" yaml:"max_pool_size" mapstructure:"max_pool_size"`
	MinPoolSize            uint64        `json:"min_pool_size" yaml:"min_pool_size" mapstructure:"min_pool_size"`
	MaxConnIdleTime        time.Duration `json:"max_conn_idle_time" yaml:"max_conn_idle_time" mapstructure:"max_conn_idle_time"`
	ConnectTimeout         time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout" yaml:"server_selection_timeout" mapstructure:"server_selection_timeout"`
	EnableReconnect        bool          `json:"enable_reconnect" yaml:"enable_reconnect" mapstructure:"enable_reconnect"`
	ReconnectInterval      time.Duration `json:"reconnect_interval" yaml:"reconnect_interval" mapstructure:"reconnect_interval"`
	MaxReconnectTries      int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" mapstructure:"max_reconnect_tries"`
	HealthCheckInterval    time.Duration `json:"health_check_interval" yaml:"health_check_interval" mapstructure:"health_check_interval"`
	EnableQueryLog         bool          `json:"enable_query_log" yaml:"enable_query_log" mapstructure:"enable_query_log"`
	SlowQueryTime          time.Duration `json:"slow_query_time" yaml:"slow_query_time" mapstructure:"slow_query_time"`
}

// Config aggregates the connection settings.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection_config" yaml:"connection_config" mapstructure:"connection_config"`
}

// Settings is the minimal configuration section: a connection string and a
// database name.
type Settings struct {
	ConnectionStrings string `json:"ConnectionStrings" yaml:"ConnectionStrings" mapstructure:"ConnectionStrings"`
	DatabaseName      string `json:"DatabaseName" yaml:"DatabaseName" mapstructure:"DatabaseName"`
}

// SettingsSection is the configuration key Settings are read from.
const SettingsSection = "MongoDBSettings"

// ConfigLoader builds a Config from the settings on top of the defaults.
func (s *Settings) ConfigLoader() *Config {
	cc := DefaultConnectionConfig()
	cc.URI = s.ConnectionStrings
	cc.Database = s.DatabaseName
	return &Config{ConnectionConfig: *cc}
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		URI:                    "mongodb://localhost:27017",
		MaxPoolSize:            100,
		MinPoolSize:            0,
		MaxConnIdleTime:        time.Minute * 30,
		ConnectTimeout:         time.Second * 10,
		ServerSelectionTimeout: time.Second * 30,
		EnableReconnect:        true,
		ReconnectInterval:      time.Second * 5,
		MaxReconnectTries:      3,
		HealthCheckInterval:    time.Minute * 5,
		EnableQueryLog:         false,
		SlowQueryTime:          time.Second * 2,
	}
}

// LoadConfigFile reads a YAML file holding either a full Config or a
// MongoDBSettings section. Unset values keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration. See LoadConfigFile.
func ParseConfig(data []byte) (*Config, error) {
	var doc struct {
		Config   `yaml:",inline"`
		Settings *Settings `yaml:"MongoDBSettings"`
	}
	doc.ConnectionConfig = *DefaultConnectionConfig()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg := doc.Config
	if doc.Settings != nil {
		if doc.Settings.ConnectionStrings != "" {
			cfg.ConnectionConfig.URI = doc.Settings.ConnectionStrings
		}
		if doc.Settings.DatabaseName != "" {
			cfg.ConnectionConfig.Database = doc.Settings.DatabaseName
		}
	}
	return &cfg, nil
}

// SettingsFromViper reads the Settings stored under key, SettingsSection when
// key is empty.
func SettingsFromViper(v *viper.Viper, key string) (*Settings, error) {
	if key == "" {
		key = SettingsSection
	}
	if v == nil || !v.IsSet(key) {
		return nil, fmt.Errorf("configuration section %q not found", key)
	}
	var settings Settings
	if err := v.UnmarshalKey(key, &settings); err != nil {
		return nil, fmt.Errorf("failed to bind configuration section %q: %w", key, err)
	}
	return &settings, nil
}

// ConfigFromViper builds a Config from the Settings stored under key.
func ConfigFromViper(v *viper.Viper, key string) (*Config, error) {
	settings, err := SettingsFromViper(v, key)
	if err != nil {
		return nil, err
	}
	return settings.ConfigLoader(), nil
}
