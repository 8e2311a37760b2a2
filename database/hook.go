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
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.mongodb.org/mongo-driver/v2/event"
)

const (
	ansiReset     = "\x1b[0m"
	ansiRed       = "\x1b[31m"
	ansiYellow    = "\x1b[33m"
	ansiGreen     = "\x1b[32m"
	ansiBlue      = "\x1b[34m"
	ansiMagenta   = "\x1b[35m"
	ansiCyan      = "\x1b[36m"
	ansiBGGreen   = "\x1b[42;97m"
	ansiBGYellow  = "\x1b[43;97m"
	ansiBGBlue    = "\x1b[44;97m"
	ansiBGMagenta = "\x1b[45;97m"
	ansiBGRed     = "\x1b[41;97m"
)

var commandLogSilentMode bool

// EnableCommandLogSilent suppresses all command monitor output.
func EnableCommandLogSilent(b bool) {
	commandLogSilentMode = b
}

func colorWrap(s, code string) string { return fmt.Sprintf("%s%s%s", code, s, ansiReset) }

type startedCommand struct {
	name     string
	database string
	command  string
}

// CommandHook prints driver commands as they complete. Output is controlled
// by the enabled flag or the environment variable named by envName: "1"
// prints failed commands, "2" prints every command. Commands slower than
// slowTime are reported to the logger.
type CommandHook struct {
	envName  string
	enabled  bool
	verbose  bool
	slowTime time.Duration
	writer   io.Writer
	logger   Logger
	counters *poolCounters
	pending  sync.Map
}

// NewCommandHook returns a hook writing to w, or stdout when w is nil.
func NewCommandHook(envName string, enabled, verbose bool, slowTime time.Duration, w io.Writer, logger Logger) *CommandHook {
	return &CommandHook{
		envName:  envName,
		enabled:  enabled,
		verbose:  verbose,
		slowTime: slowTime,
		writer:   w,
		logger:   logger,
	}
}

// Monitor adapts the hook to the driver's command monitor.
func (h *CommandHook) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   h.started,
		Succeeded: h.succeeded,
		Failed:    h.failed,
	}
}

func (h *CommandHook) settings() (enabled, verbose bool) {
	enabled, verbose = h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok && h.envName != "" {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	return enabled, verbose
}

func (h *CommandHook) output() io.Writer {
	if h.writer != nil {
		return h.writer
	}
	return os.Stdout
}

func (h *CommandHook) started(_ context.Context, evt *event.CommandStartedEvent) {
	if commandLogSilentMode {
		return
	}
	enabled, _ := h.settings()
	if !enabled && h.slowTime <= 0 {
		return
	}
	h.pending.Store(evt.RequestID, startedCommand{
		name:     evt.CommandName,
		database: evt.DatabaseName,
		command:  evt.Command.String(),
	})
}

func (h *CommandHook) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	if h.counters != nil {
		h.counters.commandsExecuted.Add(1)
	}
	h.finish(&evt.CommandFinishedEvent, nil)
}

func (h *CommandHook) failed(_ context.Context, evt *event.CommandFailedEvent) {
	if h.counters != nil {
		h.counters.commandsExecuted.Add(1)
		h.counters.commandsFailed.Add(1)
	}
	h.finish(&evt.CommandFinishedEvent, evt.Failure)
}

func (h *CommandHook) finish(evt *event.CommandFinishedEvent, failure error) {
	v, ok := h.pending.LoadAndDelete(evt.RequestID)
	if !ok || commandLogSilentMode {
		return
	}
	cmd := v.(startedCommand)

	enabled, verbose := h.settings()

	if failure == nil && h.slowTime > 0 && evt.Duration > h.slowTime {
		if h.logger != nil {
			h.logger.Warn("\x1b[33;5mDatabase slow command detected:⚠️\x1b[0m",
				"duration", evt.Duration,
				"slow_threshold", h.slowTime,
				"command", cmd.name,
				"database", cmd.database,
			)
		}
		if enabled {
			_, _ = fmt.Fprintln(h.output(),
				time.Now().Format("2006-01-02 15:04:05.000"),
				colorWrap(fmt.Sprintf("%15s", "[MONGO_SLOW]"), ansiYellow),
				fmt.Sprintf("%17s", evt.Duration.Round(time.Microsecond)),
				"  ", formatCommandBackgroundColor(cmd.name, cmd.command),
			)
			return
		}
	}

	if !enabled || (!verbose && failure == nil) {
		return
	}

	args := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%15s", "[MONGO]"), ansiCyan),
		fmt.Sprintf("%17s", evt.Duration.Round(time.Microsecond)),
		"  ", formatCommandColor(cmd.name, cmd.command),
	}
	if failure != nil {
		args = append(args,
			"\t",
			color.New(color.BgRed).Sprintf(" %T: %s ", failure, failure.Error()),
		)
	}
	_, _ = fmt.Fprintln(h.output(), args...)
}

// commandKind groups driver command names the way their color is chosen.
func commandKind(name string) string {
	switch strings.ToLower(name) {
	case "find", "aggregate", "count", "distinct", "getmore":
		return "SELECT"
	case "insert":
		return "INSERT"
	case "update", "findandmodify":
		return "UPDATE"
	case "delete":
		return "DELETE"
	default:
		return "OTHER"
	}
}

func formatCommandColor(name, command string) string {
	switch commandKind(name) {
	case "SELECT":
		return colorWrap(command, ansiGreen)
	case "INSERT":
		return colorWrap(command, ansiBlue)
	case "UPDATE":
		return colorWrap(command, ansiYellow)
	case "DELETE":
		return colorWrap(command, ansiMagenta)
	default:
		return colorWrap(command, ansiRed)
	}
}

func formatCommandBackgroundColor(name, command string) string {
	switch commandKind(name) {
	case "SELECT":
		return colorWrap(command, ansiBGGreen)
	case "INSERT":
		return colorWrap(command, ansiBGBlue)
	case "UPDATE":
		return colorWrap(command, ansiBGYellow)
	case "DELETE":
		return colorWrap(command, ansiBGMagenta)
	default:
		return colorWrap(command, ansiBGRed)
	}
}
