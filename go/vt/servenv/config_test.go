/*
Copyright 2023 The Vitess Authors.

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

package servenv

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardmerge.io/shardmerge/go/vt/utils"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

type testConfig struct {
	configFile string
	maxRows    int
	nullsOrder string
	caseSens   bool
	shards     []string
}

func newTestFlags(cfg *testConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterConfigFlags(fs, &cfg.configFile)
	utils.SetFlagIntVar(fs, &cfg.maxRows, "merge-max-memory-rows", 0, "")
	utils.SetFlagStringVar(fs, &cfg.nullsOrder, "merge-nulls-order", "low", "")
	utils.SetFlagBoolVar(fs, &cfg.caseSens, "merge-case-sensitive-columns", false, "")
	utils.SetFlagStringArrayVar(fs, &cfg.shards, "shard", nil, "")
	return fs
}

func writeFile(t *testing.T, afs afero.Fs, path, data string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(afs, path, []byte(data), 0o644))
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	fs := newTestFlags(&cfg)
	require.NoError(t, fs.Parse(nil))

	require.NoError(t, LoadConfig(fs, NewViper(afero.NewMemMapFs()), ConfigFileFlag))
	assert.Equal(t, 0, cfg.maxRows)
	assert.Equal(t, "low", cfg.nullsOrder)
	assert.False(t, cfg.caseSens)
	assert.Empty(t, cfg.shards)
}

func TestLoadConfigFile(t *testing.T) {
	afs := afero.NewMemMapFs()
	writeFile(t, afs, "/etc/vtmerge.yaml", `
merge-max-memory-rows: 1000
merge-nulls-order: high
merge-case-sensitive-columns: true
shard:
  - s0=sqlite:file:s0.db
  - s1=sqlite:file:s1.db
`)

	var cfg testConfig
	fs := newTestFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--config-file", "/etc/vtmerge.yaml"}))

	require.NoError(t, LoadConfig(fs, NewViper(afs), ConfigFileFlag))
	assert.Equal(t, 1000, cfg.maxRows)
	assert.Equal(t, "high", cfg.nullsOrder)
	assert.True(t, cfg.caseSens)
	assert.Equal(t, []string{"s0=sqlite:file:s0.db", "s1=sqlite:file:s1.db"}, cfg.shards)
}

func TestLoadConfigPrecedence(t *testing.T) {
	afs := afero.NewMemMapFs()
	writeFile(t, afs, "/etc/vtmerge.yaml", `
merge-max-memory-rows: 1000
merge-nulls-order: high
`)
	t.Setenv("SHARDMERGE_MERGE_NULLS_ORDER", "low")

	var cfg testConfig
	fs := newTestFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--config-file=/etc/vtmerge.yaml", "--merge-max-memory-rows=5"}))

	require.NoError(t, LoadConfig(fs, NewViper(afs), ConfigFileFlag))
	// Command line wins over the file.
	assert.Equal(t, 5, cfg.maxRows)
	// Environment wins over the file.
	assert.Equal(t, "low", cfg.nullsOrder)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SHARDMERGE_MERGE_MAX_MEMORY_ROWS", "42")

	var cfg testConfig
	fs := newTestFlags(&cfg)
	require.NoError(t, fs.Parse(nil))

	require.NoError(t, LoadConfig(fs, NewViper(afero.NewMemMapFs()), ConfigFileFlag))
	assert.Equal(t, 42, cfg.maxRows)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		var cfg testConfig
		fs := newTestFlags(&cfg)
		require.NoError(t, fs.Parse([]string{"--config-file=/nope.yaml"}))

		err := LoadConfig(fs, NewViper(afero.NewMemMapFs()), ConfigFileFlag)
		require.Error(t, err)
		assert.Equal(t, vtrpc.CodeInvalidArgument, vterrors.Code(err))
		assert.Contains(t, err.Error(), "cannot read config file /nope.yaml")
	})

	t.Run("bad value", func(t *testing.T) {
		afs := afero.NewMemMapFs()
		writeFile(t, afs, "/etc/vtmerge", "merge-max-memory-rows: lots\n")

		var cfg testConfig
		fs := newTestFlags(&cfg)
		require.NoError(t, fs.Parse([]string{"--config-file=/etc/vtmerge"}))

		err := LoadConfig(fs, NewViper(afs), ConfigFileFlag)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid value for merge-max-memory-rows")
	})
}

func TestVersionInfo(t *testing.T) {
	v := newVersionInfo("Mon Jan  2 15:04:05 UTC 2006")
	assert.Equal(t, int64(1136214245), v.buildTime)
	assert.Equal(t, versionName, v.Version())
	assert.Equal(t, versionName, v.ToStringMap()["version"])
	assert.Contains(t, v.String(), "Version: "+versionName)

	assert.Panics(t, func() { newVersionInfo("yesterday") })
}
