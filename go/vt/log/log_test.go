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
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	restore := SetLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(restore)
	return buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		record := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &record))
		records = append(records, record)
	}
	return records
}

func TestStructuredLogging(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)

	InfoS("merge started", "mode", "streaming", "shards", 3)
	Warningf("closing shard %s failed", "s1")
	DebugS("dropped because of the level")

	records := decodeLines(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "merge started", records[0]["msg"])
	assert.Equal(t, "streaming", records[0]["mode"])
	assert.EqualValues(t, 3, records[0]["shards"])
	assert.Equal(t, "WARN", records[1]["level"])
	assert.Equal(t, "closing shard s1 failed", records[1]["msg"])
}

func TestVerbose(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	assert.True(t, bool(V(0)))
	assert.False(t, bool(V(1)))
	V(1).Infof("hidden %d", 1)
	assert.Empty(t, decodeLines(t, buf))

	buf = captureJSON(t, slog.LevelDebug)
	require.True(t, bool(V(1)))
	V(1).Infof("shown %d", 2)
	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "shown 2", records[0]["msg"])
	assert.Equal(t, "DEBUG", records[0]["level"])
}

func TestNewHandler(t *testing.T) {
	for _, format := range []string{"json", "logfmt", "text", " JSON "} {
		h, err := newHandler(format, &bytes.Buffer{}, slog.LevelInfo)
		require.NoError(t, err, format)
		assert.NotNil(t, h)
	}
	_, err := newHandler("xml", &bytes.Buffer{}, slog.LevelInfo)
	assert.EqualError(t, err, `invalid log-fmt "xml": expected json, logfmt or text`)
	assert.False(t, isTerminal(&bytes.Buffer{}))
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel(" Debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseLevel("trace")
	assert.ErrorContains(t, err, `invalid log-level "trace"`)
}

func TestInit(t *testing.T) {
	// Unchanged log-fmt keeps glog.
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Init(fs))
	assert.False(t, structured.Load())

	restore := SetLogger(slog.Default())
	defer restore()

	buf := &bytes.Buffer{}
	previous := output
	output = buf
	defer func() { output = previous }()

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt", "json", "--log-level", "warn"}))
	require.NoError(t, Init(fs))

	InfoS("below the level")
	ErrorS("shard failed", "shard", "s2")
	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "shard failed", records[0]["msg"])
	assert.Equal(t, "s2", records[0]["shard"])

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt", "json", "--log-level", "loud"}))
	assert.Error(t, Init(fs))
}

func TestLogRotateMaxSize(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-rotate-max-size", "1024"}))
	assert.Equal(t, "1024", fs.Lookup("log-rotate-max-size").Value.String())
	assert.Error(t, fs.Parse([]string{"--log-rotate-max-size", "big"}))
}
