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

package merger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/test/utils"
	"shardmerge.io/shardmerge/go/vt/merger/opcode"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

var idFields = sqltypes.MakeTestFields("id|tag", "int64|varchar")

func orderBy(name string, dir opcode.Direction) *statement.Statement {
	return &statement.Statement{
		Kind:    opcode.StatementSelect,
		OrderBy: []*statement.OrderByItem{{Name: name, Direction: dir}},
	}
}

func mergeAll(t *testing.T, streams []shardstream.Stream, stmt *statement.Statement, opts ...Option) (*sqltypes.Result, *Cursor) {
	t.Helper()
	c, err := Merge(context.Background(), streams, stmt, opts...)
	require.NoError(t, err)
	result, err := c.ReadAll(context.Background())
	require.NoError(t, err)
	return result, c
}

func TestMergeOrderBy(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a", "4|d", "7|g"),
		sqltypes.MakeTestResult(idFields, "2|b", "3|c"),
		sqltypes.MakeTestResult(idFields),
		sqltypes.MakeTestResult(idFields, "5|e", "6|f"),
	)
	result, c := mergeAll(t, streams, orderBy("id", opcode.Ascending))

	want := sqltypes.MakeTestResult(idFields, "1|a", "2|b", "3|c", "4|d", "5|e", "6|f", "7|g")
	utils.MustMatch(t, want, result)
	assert.Equal(t, ModeStreaming, c.Mode())
	requireClosed(t, rs)
}

func TestMergeTiesKeepShardOrder(t *testing.T) {
	streams, _ := shards(
		sqltypes.MakeTestResult(idFields, "1|s0a", "2|s0b"),
		sqltypes.MakeTestResult(idFields, "1|s1a", "2|s1b"),
		sqltypes.MakeTestResult(idFields, "1|s2a"),
	)
	result, _ := mergeAll(t, streams, orderBy("id", opcode.Ascending))

	want := sqltypes.MakeTestResult(idFields, "1|s0a", "1|s1a", "1|s2a", "2|s0b", "2|s1b")
	utils.MustMatch(t, want, result)
}

func TestMergeNullsOrder(t *testing.T) {
	t.Run("low", func(t *testing.T) {
		streams, _ := shards(
			sqltypes.MakeTestResult(idFields, "3|a", "null|b"),
			sqltypes.MakeTestResult(idFields, "2|c", "1|d"),
		)
		result, _ := mergeAll(t, streams, orderBy("id", opcode.Descending))
		utils.MustMatch(t, sqltypes.MakeTestResult(idFields, "3|a", "2|c", "1|d", "null|b"), result)
	})
	t.Run("high", func(t *testing.T) {
		streams, _ := shards(
			sqltypes.MakeTestResult(idFields, "null|b", "3|a"),
			sqltypes.MakeTestResult(idFields, "2|c", "1|d"),
		)
		result, _ := mergeAll(t, streams, orderBy("id", opcode.Descending), WithNullsOrder(NullsHigh))
		utils.MustMatch(t, sqltypes.MakeTestResult(idFields, "null|b", "3|a", "2|c", "1|d"), result)
	})
}

func TestMergeWithoutOrder(t *testing.T) {
	streams, _ := shards(
		sqltypes.MakeTestResult(idFields, "3|a", "1|b"),
		sqltypes.MakeTestResult(idFields, "2|c"),
	)
	result, c := mergeAll(t, streams, &statement.Statement{})
	utils.MustMatch(t, sqltypes.MakeTestResult(idFields, "3|a", "1|b", "2|c"), result)
	assert.Equal(t, "Concatenate", c.Describe().Inputs[0].OperatorType)
}

func TestMergeSortMatchesMemorySort(t *testing.T) {
	results := func() []*sqltypes.Result {
		return []*sqltypes.Result{
			sqltypes.MakeTestResult(idFields, "1|s0a", "1|s0b", "3|s0c", "5|s0d"),
			sqltypes.MakeTestResult(idFields, "1|s1a", "2|s1b", "3|s1c"),
			sqltypes.MakeTestResult(idFields),
			sqltypes.MakeTestResult(idFields, "2|s3a", "5|s3b", "5|s3c"),
		}
	}
	keys := []*statement.OrderByItem{{Name: "id", Index: 1}}

	ms := &MergeSort{Sources: concatenated(results()...).Sources, OrderBy: keys}
	mem := &MemorySort{Input: concatenated(results()...), OrderBy: keys}

	streaming := drain(t, ms)
	sorted := drain(t, mem)
	require.Len(t, streaming, 10)
	utils.MustMatch(t, sorted, streaming, "streaming and memory sort differ")
}

func TestMergeSortMatchesStableSortRandomized(t *testing.T) {
	fields := sqltypes.MakeTestFields("k|tag|src", "int64|varchar|varchar")
	tags := []string{"a", "b", "c"}
	stmt := &statement.Statement{
		Kind: opcode.StatementSelect,
		OrderBy: []*statement.OrderByItem{
			{Name: "k", Direction: opcode.Descending},
			{Name: "tag", Direction: opcode.Ascending},
		},
	}

	// k < 0 stands for NULL, which sorts last in descending order.
	type testRow struct {
		k   int
		tag string
		src string
	}
	sortRows := func(rows []testRow) {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].k != rows[j].k {
				return rows[i].k > rows[j].k
			}
			return rows[i].tag < rows[j].tag
		})
	}
	format := func(rows []testRow) []string {
		lines := make([]string, len(rows))
		for i, r := range rows {
			k := "null"
			if r.k >= 0 {
				k = strconv.Itoa(r.k)
			}
			lines[i] = k + "|" + r.tag + "|" + r.src
		}
		return lines
	}

	rng := rand.New(rand.NewPCG(42, 7))
	for iter := range 300 {
		var all []testRow
		results := make([]*sqltypes.Result, 1+rng.IntN(5))
		for i := range results {
			rows := make([]testRow, rng.IntN(8))
			for j := range rows {
				rows[j] = testRow{
					k:   rng.IntN(6) - 1,
					tag: tags[rng.IntN(len(tags))],
					src: fmt.Sprintf("s%d-%d", i, j),
				}
			}
			sortRows(rows)
			all = append(all, rows...)
			results[i] = sqltypes.MakeTestResult(fields, format(rows)...)
		}
		sortRows(all)

		streams, rs := shards(results...)
		result, c := mergeAll(t, streams, stmt, WithPrefetch(rng.IntN(3)))
		require.Equalf(t, ModeStreaming, c.Mode(), "iteration %d", iter)
		utils.MustMatch(t, sqltypes.MakeTestResult(fields, format(all)...), result, fmt.Sprintf("iteration %d", iter))
		requireClosed(t, rs)
	}
}

func TestMergeLimit(t *testing.T) {
	results := func() []*sqltypes.Result {
		return []*sqltypes.Result{
			sqltypes.MakeTestResult(idFields, "1|a", "3|c", "5|e"),
			sqltypes.MakeTestResult(idFields, "2|b", "4|d"),
		}
	}
	testcases := []struct {
		name  string
		limit *statement.Limit
		want  []string
	}{{
		name:  "offset and row count",
		limit: &statement.Limit{Offset: 1, RowCount: 2, HasRowCount: true},
		want:  []string{"2|b", "3|c"},
	}, {
		name:  "offset only",
		limit: &statement.Limit{Offset: 3},
		want:  []string{"4|d", "5|e"},
	}, {
		name:  "row count zero",
		limit: &statement.Limit{HasRowCount: true},
	}, {
		name:  "offset past the end",
		limit: &statement.Limit{Offset: 9, RowCount: 2, HasRowCount: true},
	}, {
		name:  "row count past the end",
		limit: &statement.Limit{RowCount: 10, HasRowCount: true},
		want:  []string{"1|a", "2|b", "3|c", "4|d", "5|e"},
	}}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			streams, rs := shards(results()...)
			stmt := orderBy("id", opcode.Ascending)
			stmt.Limit = tc.limit
			result, _ := mergeAll(t, streams, stmt)
			utils.MustMatch(t, sqltypes.MakeTestResult(idFields, tc.want...), result)
			requireClosed(t, rs)
		})
	}
}

func TestMergeGroupByStreaming(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(shardFields, "1|a|2|1.5|3|2", "2|b|1|4|4|1"),
		sqltypes.MakeTestResult(shardFields, "3|a|3|2|6|3", "4|c|1|5|5|1"),
	)
	result, c := mergeAll(t, streams, groupedStatement("group_col", "group_col"))

	want := sqltypes.MakeTestResult(shardFields[:4], "1|a|5|1.8000", "2|b|1|4.0000", "4|c|1|5.0000")
	utils.MustMatch(t, want, result)
	assert.Equal(t, ModeStreaming, c.Mode())
	requireClosed(t, rs)

	plan := c.Describe()
	assert.Equal(t, "Truncate", plan.OperatorType)
	assert.Equal(t, "Aggregate", plan.Inputs[0].OperatorType)
	assert.Equal(t, "Merge", plan.Inputs[0].Inputs[0].Variant)
}

func TestMergeGroupByMemorySort(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(shardFields, "1|a|2|1.5|3|2", "5|b|1|4|4|1"),
		sqltypes.MakeTestResult(shardFields, "3|a|3|2|6|3", "2|c|1|5|5|1"),
	)
	result, c := mergeAll(t, streams, groupedStatement("order_col", "group_col"))

	want := sqltypes.MakeTestResult(shardFields[:4], "1|a|5|1.8000", "2|c|1|5.0000", "5|b|1|4.0000")
	utils.MustMatch(t, want, result)
	assert.Equal(t, ModeMemorySort, c.Mode())
	requireClosed(t, rs)

	wantPlan := `Truncate Columns=4
  Sort (Memory) OrderBy=(1|order_col) ASC
    Aggregate (Ordered) Aggregates=count(count_col), avg(avg_col) from 4/5 GroupBy=1
      Sort (Memory) OrderBy=(2|group_col) ASC
        Concatenate Sources=2
          Shard Shard=s0
          Shard Shard=s1
`
	assert.Equal(t, wantPlan, c.Describe().String())

	out, err := json.Marshal(c.Describe().Inputs[0].Inputs[0].Inputs[0].Inputs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"OperatorType": "Concatenate",
		"Other": {"Sources": "2"},
		"Inputs": [
			{"OperatorType": "Shard", "Other": {"Shard": "s0"}, "Inputs": []},
			{"OperatorType": "Shard", "Other": {"Shard": "s1"}, "Inputs": []}
		]
	}`, string(out))
}

func TestMergeScalarAggregate(t *testing.T) {
	fields := sqltypes.MakeTestFields("c|s|mx|mn", "int64|decimal|int64|int64")
	stmt := &statement.Statement{
		Aggregations: []*statement.AggregationColumn{
			{Kind: opcode.AggregateCount, Alias: "c"},
			{Kind: opcode.AggregateSum, Alias: "s"},
			{Kind: opcode.AggregateMax, Alias: "mx"},
			{Kind: opcode.AggregateMin, Alias: "mn"},
		},
	}

	streams, _ := shards(
		sqltypes.MakeTestResult(fields, "2|1.50|7|3"),
		sqltypes.MakeTestResult(fields, "3|2.25|9|null"),
	)
	result, _ := mergeAll(t, streams, stmt.Copy())
	utils.MustMatch(t, sqltypes.MakeTestResult(fields, "5|3.75|9|3"), result)

	streams, _ = shards(sqltypes.MakeTestResult(fields), sqltypes.MakeTestResult(fields))
	result, _ = mergeAll(t, streams, stmt.Copy())
	utils.MustMatch(t, sqltypes.MakeTestResult(fields, "0|null|null|null"), result)
}

func TestMergeAvg(t *testing.T) {
	fields := sqltypes.MakeTestFields("a|AVG_DERIVED_SUM_0|AVG_DERIVED_COUNT_0", "decimal|int64|int64")
	stmt := &statement.Statement{
		Aggregations: []*statement.AggregationColumn{{Kind: opcode.AggregateAvg, Expression: "AVG(x)", Alias: "a"}},
	}

	streams, _ := shards(
		sqltypes.MakeTestResult(fields, "5|10|2"),
		sqltypes.MakeTestResult(fields, "3|6|2"),
	)
	result, _ := mergeAll(t, streams, stmt.Copy())
	utils.MustMatch(t, sqltypes.MakeTestResult(fields[:1], "4.0000"), result)

	streams, _ = shards(
		sqltypes.MakeTestResult(fields, "null|null|0"),
		sqltypes.MakeTestResult(fields, "null|null|0"),
	)
	result, _ = mergeAll(t, streams, stmt.Copy())
	utils.MustMatch(t, sqltypes.MakeTestResult(fields[:1], "null"), result)
}

func TestMergeShardError(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a", "3|c", "5|e"),
		sqltypes.MakeTestResult(idFields, "2|b", "4|d"),
	)
	cause := vterrors.New(vtrpc.CodeUnavailable, "connection reset")
	streams[1] = &failingStream{ResultStream: rs[1], n: 1, err: cause}

	c, err := Merge(context.Background(), streams, orderBy("id", opcode.Ascending))
	require.NoError(t, err)
	_, err = c.ReadAll(context.Background())
	require.EqualError(t, err, "shard s1: connection reset")

	var sse *ShardStreamError
	require.ErrorAs(t, err, &sse)
	assert.Equal(t, "s1", sse.Shard)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, vtrpc.CodeUnavailable, vterrors.Code(err))
	requireClosed(t, rs)

	_, again := c.Next(context.Background())
	assert.Equal(t, err, again)
	require.NoError(t, c.Close())
}

func TestMergeRowProjectionMismatch(t *testing.T) {
	fields := sqltypes.MakeTestFields("a|b|c", "int64|int64|int64")
	streams, rs := shards(
		sqltypes.MakeTestResult(fields, "1|1|1"),
		&sqltypes.Result{Fields: fields, Rows: []sqltypes.Row{{sqltypes.NewInt64(2)}}},
	)
	c, err := Merge(context.Background(), streams, orderBy("a", opcode.Ascending))
	require.NoError(t, err)
	_, err = c.ReadAll(context.Background())

	var mismatch *RowProjectionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, RowProjectionMismatchError{Shard: "s1", Want: 3, Got: 1}, *mismatch)
	assert.Equal(t, vtrpc.CodeFailedPrecondition, vterrors.Code(err))
	requireClosed(t, rs)
}

func TestMergeResolveErrorClosesShards(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a"),
		sqltypes.MakeTestResult(idFields, "2|b"),
	)
	before := InitializeMetrics().errors.Counts()["INVALID_ARGUMENT"]

	_, err := Merge(context.Background(), streams, orderBy("missing", opcode.Ascending))
	var unresolved *UnresolvedColumnError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "missing", unresolved.Column)
	requireClosed(t, rs)
	assert.Equal(t, before+1, InitializeMetrics().errors.Counts()["INVALID_ARGUMENT"])
}

func TestMergeCanceled(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a", "3|c"),
		sqltypes.MakeTestResult(idFields, "2|b", "4|d"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := Merge(ctx, streams, orderBy("id", opcode.Ascending))
	require.NoError(t, err)
	_, err = c.Next(ctx)
	require.NoError(t, err)

	cancel()
	_, err = c.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, vtrpc.CodeCanceled, vterrors.Code(err))
	requireClosed(t, rs)

	// A canceled context fails the merge before it starts.
	streams, rs = shards(sqltypes.MakeTestResult(idFields, "1|a"))
	_, err = Merge(ctx, streams, orderBy("id", opcode.Ascending))
	require.ErrorIs(t, err, context.Canceled)
	requireClosed(t, rs)
}

func TestMergeDeadlineWhileDraining(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	streams, rs := shards(
		sqltypes.MakeTestResult(shardFields, "1|a|2|1.5|3|2"),
		sqltypes.MakeTestResult(shardFields, "3|b|3|2|6|3"),
	)
	streams[1] = &blockingStream{ResultStream: rs[1]}

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	c, err := Merge(ctx, streams, groupedStatement("order_col", "group_col"))
	require.NoError(t, err)
	require.Equal(t, ModeMemorySort, c.Mode())

	_, err = c.ReadAll(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, vtrpc.CodeDeadlineExceeded, vterrors.Code(err))
	requireClosed(t, rs)
}

func TestMergeMemoryLimit(t *testing.T) {
	streams, rs := shards(
		sqltypes.MakeTestResult(shardFields, "1|a|2|1.5|3|2", "5|b|1|4|4|1"),
		sqltypes.MakeTestResult(shardFields, "3|a|3|2|6|3", "2|c|1|5|5|1"),
	)
	c, err := Merge(context.Background(), streams, groupedStatement("order_col", "group_col"), WithMaxMemoryRows(3))
	require.NoError(t, err)
	_, err = c.ReadAll(context.Background())
	require.EqualError(t, err, "in-memory row count exceeded allowed limit of 3")
	assert.Equal(t, vtrpc.CodeResourceExhausted, vterrors.Code(err))
	assert.Equal(t, vterrors.MemoryLimitExceeded, vterrors.ErrState(err))
	requireClosed(t, rs)
}

func TestMergePrefetch(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a", "3|c", "5|e"),
		sqltypes.MakeTestResult(idFields, "2|b", "4|d"),
	)
	c, err := Merge(ctx, streams, orderBy("id", opcode.Ascending), WithPrefetch(2))
	require.NoError(t, err)
	result, err := c.ReadAll(ctx)
	require.NoError(t, err)
	utils.MustMatch(t, sqltypes.MakeTestResult(idFields, "1|a", "2|b", "3|c", "4|d", "5|e"), result)
	requireClosed(t, rs)
}

func TestMergePrefetchEarlyClose(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	streams, rs := shards(
		sqltypes.MakeTestResult(idFields, "1|a", "3|c", "5|e"),
		sqltypes.MakeTestResult(idFields, "2|b", "4|d"),
	)
	c, err := Merge(ctx, streams, orderBy("id", opcode.Ascending), WithPrefetch(1))
	require.NoError(t, err)
	row, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", row[0].ToString())

	require.NoError(t, c.Close())
	requireClosed(t, rs)
}

func TestCursor(t *testing.T) {
	streams, rs := shards(sqltypes.MakeTestResult(idFields, "1|a", "2|b"))
	metrics := InitializeMetrics()
	executions := metrics.executions.Counts()[ModeStreaming.String()]
	emitted := metrics.rowsEmitted.Get()

	c, err := Merge(context.Background(), streams, orderBy("id", opcode.Ascending))
	require.NoError(t, err)
	_, err = uuid.Parse(c.ExecutionID())
	require.NoError(t, err)
	assert.Equal(t, idFields, c.Fields())
	assert.Equal(t, 1, c.MergeContext().Statement().OrderBy[0].Index)

	_, err = c.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	requireClosed(t, rs)

	_, err = c.Next(context.Background())
	require.EqualError(t, err, "merge cursor is closed")

	assert.Equal(t, executions+1, metrics.executions.Counts()[ModeStreaming.String()])
	assert.Equal(t, emitted+1, metrics.rowsEmitted.Get())
}

func TestCursorEOF(t *testing.T) {
	streams, _ := shards(sqltypes.MakeTestResult(idFields, "1|a"))
	c, err := Merge(context.Background(), streams, &statement.Statement{})
	require.NoError(t, err)
	_, err = c.Next(context.Background())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = c.Next(context.Background())
		require.Equal(t, io.EOF, err)
	}
	require.NoError(t, c.Close())
}

func TestMergeNoShards(t *testing.T) {
	result, c := mergeAll(t, nil, &statement.Statement{})
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Fields)
	require.NoError(t, c.Close())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "STREAMING", ModeStreaming.String())
	assert.Equal(t, "MEMORY_SORT", ModeMemorySort.String())
	assert.Equal(t, "UNKNOWN", Mode(7).String())
}
