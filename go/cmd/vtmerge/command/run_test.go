/*
Copyright 2024 The Vitess Authors.

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

package command

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardmerge.io/shardmerge/go/cmd/vtmerge/cli"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

// writeShard creates a sqlite shard holding table t(id, tag) and returns
// its target.
func writeShard(t *testing.T, name string, stmts ...string) cli.ShardTarget {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("create table t (id integer, tag text)")
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return cli.ShardTarget{Name: name, Driver: "sqlite", DSN: path}
}

func testShards(t *testing.T) []cli.ShardTarget {
	return []cli.ShardTarget{
		writeShard(t, "s0", "insert into t values (1, 'a'), (3, 'c')"),
		writeShard(t, "s1", "insert into t values (2, 'b'), (4, null)"),
	}
}

const orderByID = `
kind: select
order_by:
  - name: id
`

func mustParse(t *testing.T, data string) *statement.Statement {
	t.Helper()
	stmt, err := statement.Parse([]byte(data))
	require.NoError(t, err)
	return stmt
}

type jsonOutput struct {
	ExecutionID string  `json:"execution_id"`
	Mode        string  `json:"mode"`
	Rows        [][]any `json:"rows"`
}

func TestRunMergeJSON(t *testing.T) {
	var buf bytes.Buffer
	err := runMerge(context.Background(), &buf, mergeRequest{
		stmt:    mustParse(t, orderByID),
		query:   "select id, tag from t order by id",
		targets: testShards(t),
		json:    true,
	})
	require.NoError(t, err)

	var got jsonOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "STREAMING", got.Mode)
	assert.NotEmpty(t, got.ExecutionID)
	assert.Equal(t, [][]any{
		{float64(1), "a"},
		{float64(2), "b"},
		{float64(3), "c"},
		{float64(4), nil},
	}, got.Rows)
}

func TestRunMergeTable(t *testing.T) {
	stmt := mustParse(t, `
kind: select
order_by:
  - name: id
    direction: desc
limit:
  row_count: 2
`)
	var buf bytes.Buffer
	err := runMerge(context.Background(), &buf, mergeRequest{
		stmt:    stmt,
		query:   "select id, tag from t order by id desc",
		targets: testShards(t),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "NULL"))
	assert.Contains(t, out, "2 rows in set")
	assert.Contains(t, out, "(STREAMING)")
}

func TestRunMergeExplain(t *testing.T) {
	var buf bytes.Buffer
	err := runMerge(context.Background(), &buf, mergeRequest{
		stmt:    mustParse(t, orderByID),
		query:   "select id, tag from t order by id",
		targets: testShards(t),
		explain: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `Truncate Columns=2
  Sort (Merge) OrderBy=(1|id) ASC
    Shard Shard=s0
    Shard Shard=s1
`, buf.String())
}

func TestRunMergeQueryError(t *testing.T) {
	var buf bytes.Buffer
	err := runMerge(context.Background(), &buf, mergeRequest{
		stmt:    mustParse(t, orderByID),
		query:   "select id, tag from missing",
		targets: testShards(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Empty(t, buf.String())
}

// executeRoot runs the root command with args and resets the run flags
// once the test is done.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		Run.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	})

	var buf bytes.Buffer
	Root.SetOut(&buf)
	Root.SetErr(&bytes.Buffer{})
	Root.SetArgs(args)
	err := Root.Execute()
	return buf.String(), err
}

func withConfigFS(t *testing.T, fs afero.Fs) {
	t.Helper()
	orig := configFS
	configFS = fs
	t.Cleanup(func() { configFS = orig })
}

func TestRunCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/stmt.yaml", []byte(orderByID), 0o644))
	withConfigFS(t, fs)

	targets := testShards(t)
	out, err := executeRoot(t, "run",
		"--statement", "/stmt.yaml",
		"--query", "select id, tag from t order by id",
		"--shard", targets[0].String(),
		"--shard", targets[1].String(),
		"--json",
	)
	require.NoError(t, err)

	var got jsonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Rows, 4)
	assert.Equal(t, float64(1), got.Rows[0][0])
}

func TestRunCommandErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/stmt.yaml", []byte(orderByID), 0o644))
	withConfigFS(t, fs)

	t.Run("no shards", func(t *testing.T) {
		_, err := executeRoot(t, "run", "--statement", "/stmt.yaml", "--query", "select 1")
		assert.EqualError(t, err, "at least one --shard is required")
	})
	t.Run("no query", func(t *testing.T) {
		_, err := executeRoot(t, "run", "--statement", "/stmt.yaml", "--shard", "s0=sqlite:a.db")
		assert.EqualError(t, err, "--query is required")
	})
	t.Run("bad shard", func(t *testing.T) {
		_, err := executeRoot(t, "run", "--statement", "/stmt.yaml", "--query", "select 1", "--shard", "s0")
		assert.EqualError(t, err, `invalid shard "s0": expected <name>=<driver>:<dsn>`)
	})
	t.Run("missing statement file", func(t *testing.T) {
		_, err := executeRoot(t, "run", "--statement", "/missing.yaml", "--query", "select 1", "--shard", "s0=sqlite:a.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot read statement file /missing.yaml")
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := executeRoot(t, "version", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got["version"])
	assert.NotEmpty(t, got["go_version"])
}
