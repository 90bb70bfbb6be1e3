/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

var (
	// logFormat and logLevel hold the --log-fmt and --log-level flags.
	logFormat string
	logLevel  string

	// output receives the structured records.
	output io.Writer = os.Stderr

	// structured is set once Init switched from glog to slog.
	structured atomic.Bool
)

// Init switches to structured logging when --log-fmt was given on fs.
// Otherwise glog stays in charge.
func Init(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	if f := fs.Lookup("log-fmt"); f == nil || !f.Changed {
		return nil
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	handler, err := newHandler(logFormat, output, level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	structured.Store(true)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn, or error", s)
}

// newHandler builds the handler for a --log-fmt value. Text output is
// colored only on a terminal.
func newHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: level}), nil
	case "logfmt":
		return slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true, Level: level}), nil
	case "text":
		return tint.NewHandler(w, &tint.Options{
			AddSource:  true,
			Level:      level,
			TimeFormat: time.StampMilli,
			NoColor:    !isTerminal(w),
		}), nil
	}
	return nil, fmt.Errorf("invalid log-fmt %q: expected json, logfmt or text", format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// Enabled reports whether a record at level would be written. Under glog,
// debug records need -v=1 or more.
func Enabled(level slog.Level) bool {
	if structured.Load() {
		return slog.Default().Enabled(context.Background(), level)
	}
	if level < slog.LevelInfo {
		return bool(glog.V(1))
	}
	return true
}

// logS writes one record through slog, or through glog before Init
// enabled structured logging. depth counts the frames above the exported
// wrapper.
func logS(level slog.Level, depth int, msg string, args ...any) {
	if !structured.Load() {
		toGlog(level, depth+3, append([]any{msg}, args...))
		return
	}

	ctx := context.Background()
	handler := slog.Default().Handler()
	if !handler.Enabled(ctx, level) {
		return
	}
	// Skip runtime.Callers, logS and the wrapper so the source is the caller.
	var pcs [1]uintptr
	runtime.Callers(depth+3, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = handler.Handle(ctx, record)
}

func toGlog(level slog.Level, depth int, args []any) {
	switch {
	case level >= slog.LevelError:
		glog.ErrorDepth(depth, args...)
	case level >= slog.LevelWarn:
		glog.WarningDepth(depth, args...)
	default:
		glog.InfoDepth(depth, args...)
	}
}

// InfoS logs msg with key/value attributes at the Info level.
func InfoS(msg string, args ...any) {
	logS(slog.LevelInfo, 0, msg, args...)
}

// WarnS logs at the Warn level.
func WarnS(msg string, args ...any) {
	logS(slog.LevelWarn, 0, msg, args...)
}

// DebugS logs at the Debug level.
func DebugS(msg string, args ...any) {
	logS(slog.LevelDebug, 0, msg, args...)
}

// ErrorS logs at the Error level.
func ErrorS(msg string, args ...any) {
	logS(slog.LevelError, 0, msg, args...)
}

// SetLogger makes logger the structured logger until the returned function
// is called. Used for testing.
func SetLogger(logger *slog.Logger) func() {
	if logger == nil {
		return func() {}
	}
	wasStructured := structured.Load()
	previous := slog.Default()
	slog.SetDefault(logger)
	structured.Store(true)
	return func() {
		slog.SetDefault(previous)
		structured.Store(wasStructured)
	}
}
