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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestConsoleFormatter(t *testing.T) {
	f := &ConsoleFormatter{LoggerName: "DATABASE", NameWidth: 10, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"database": "shop", "attempt": 2},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.True(t, strings.HasPrefix(line, "2025-01-02 03:04:05.006    INFO "))
	assert.Contains(t, line, "[  DATABASE] : connected attempt=2 database=shop\n")
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATABASE"}
	out, err := f.Format(&logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.ErrorLevel,
		Message: "failed",
		Data:    logrus.Fields{"error": errors.New("boom")},
	})
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "DATABASE", rec["model"])
	assert.Equal(t, "failed", rec["message"])
	assert.Equal(t, map[string]interface{}{"error": "boom"}, rec["fields"])
}

func TestRegistryAndLevels(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	defer ConfigureOutput(nil)

	l := NewLogger("UTILS_TEST")
	assert.Same(t, l, GetLogger("UTILS_TEST"))

	assert.True(t, SetLoggerLevel("UTILS_TEST", "error"))
	assert.False(t, SetLoggerLevel("UTILS_MISSING", "error"))
	l.Info("hidden")
	l.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureFileLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, ConfigureFileLog(path))
	defer ConfigureOutput(nil)

	l := NewLogger("UTILS_FILE")
	l.SetLevel(logrus.InfoLevel)
	l.Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "v")
	t.Setenv("UTILS_TEST_BOOL", "true")
	t.Setenv("UTILS_TEST_DUR", "3s")
	assert.Equal(t, "v", EnvDefaultString("UTILS_TEST_STR", "d"))
	assert.Equal(t, "d", EnvDefaultString("UTILS_TEST_NONE", "d"))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_NONE", true))
	assert.Equal(t, 3*time.Second, EnvDefaultDuration("UTILS_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDefaultDuration("UTILS_TEST_NONE", time.Second))
}
