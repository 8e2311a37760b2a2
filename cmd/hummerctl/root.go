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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/hummer-mongo/database"
	"github.com/tomoncle/hummer-mongo/utils"
)

const envPrefix = "HUMMER"

var rootCmd = &cobra.Command{
	Use:           "hummerctl",
	Short:         "Inspect a MongoDB deployment through the hummer repository",
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
		viper.AutomaticEnv()
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return viper.BindPFlags(cmd.PersistentFlags())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.String("config", "", "Path to a YAML config file")
	pflags.String("env-file", "", "Path to a .env file loaded before any other configuration")
	pflags.String("uri", "", "MongoDB connection string")
	pflags.String("database", "", "Database name")
	pflags.Duration("timeout", utils.EnvDefaultDuration("HUMMER_TIMEOUT", 10*time.Second), "Timeout for each command")
	pflags.String("log-level", "warn", "Log level")

	rootCmd.AddCommand(pingCmd, healthCmd, statsCmd, metricsCmd, countCmd, findCmd, firstCmd, lastCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// loadEnvFile exports the variables of a dotenv file. Variables already set
// in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// loadConfig builds the connection config from the config file, a
// MongoDBSettings section and flags, in increasing precedence.
func loadConfig(v *viper.Viper) (*database.Config, error) {
	cfg := &database.Config{ConnectionConfig: *database.DefaultConnectionConfig()}
	if path := v.GetString("config"); path != "" {
		loaded, err := database.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if v.IsSet(database.SettingsSection) {
		loaded, err := database.ConfigFromViper(v, database.SettingsSection)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if uri := v.GetString("uri"); uri != "" {
		cfg.ConnectionConfig.URI = uri
	}
	if name := v.GetString("database"); name != "" {
		cfg.ConnectionConfig.Database = name
	}
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return cfg, nil
}

// connect initializes the global client and returns a context bounded by the
// --timeout flag. The returned cleanup closes both.
func connect(cmd *cobra.Command) (context.Context, func(), error) {
	utils.ConfigureLogLevel(viper.GetString("log-level"))
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	if _, err := database.InitDBContext(ctx, cfg); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, func() {
		cancel()
		_ = database.CloseDB()
	}, nil
}
