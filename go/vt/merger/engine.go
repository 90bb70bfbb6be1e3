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

// Package merger merges the partial results of a statement that ran on
// several shards into the single result the statement would have had on
// one database. It honors ORDER BY, GROUP BY, the COUNT, SUM, MIN, MAX and
// AVG aggregates, and LIMIT with OFFSET.
//
// Merge picks one of two modes. The streaming mode holds one row per shard
// and relies on every shard being sorted the way the merge needs. When the
// grouping keys differ from the order the shards sorted by, the memory sort
// mode buffers every row and sorts again.
package merger

import (
	"context"

	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

// Mode is the way a merge reads its shards.
type Mode int

const (
	// ModeStreaming merges rows as they arrive, one row per shard in memory.
	ModeStreaming Mode = iota
	// ModeMemorySort buffers and sorts the rows of every shard.
	ModeMemorySort
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "STREAMING"
	case ModeMemorySort:
		return "MEMORY_SORT"
	}
	return "UNKNOWN"
}

// Merge starts merging streams for stmt and returns the cursor over the
// merged rows. The items of stmt are resolved in place. The cursor owns the
// streams: they are closed when the cursor is closed, when the merge
// fails, or at the end of the rows. When Merge itself fails, every stream
// is closed before it returns.
func Merge(ctx context.Context, streams []shardstream.Stream, stmt *statement.Statement, opts ...Option) (*Cursor, error) {
	metrics := InitializeMetrics()
	mc, err := NewMergeContext(streams, stmt, opts...)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		metrics.errors.Add(errorCode(err), 1)
		if cerr := shardstream.CloseAll(streams); cerr != nil {
			log.Warningf("closing shard streams after %v: %v", err, cerr)
		}
		return nil, err
	}

	plan, mode := mc.buildPlan()
	metrics.executions.Add(mode.String(), 1)
	c := newCursor(mc, plan, mode)
	log.V(1).Infof("merge %s: %s over %d shards in %s mode", c.ExecutionID(), stmt, len(streams), mode)
	return c, nil
}

// buildPlan assembles the operators of the merge. Rows are first brought
// into the order grouping needs, then grouped, then sorted again for ORDER
// BY if grouping changed the order, then limited.
func (mc *MergeContext) buildPlan() (Primitive, Mode) {
	mode := ModeStreaming
	if mc.NeedsMemorySortForGroupBy() {
		mode = ModeMemorySort
	}
	prefetch := mc.opts.prefetch
	if mode != ModeStreaming {
		prefetch = 0
	}
	sources := make([]Primitive, len(mc.streams))
	for i, s := range mc.streams {
		sources[i] = newShardSource(s, mc.width, prefetch)
	}

	var plan Primitive
	switch {
	case mode == ModeMemorySort:
		mc.SetGroupByKeysToCurrentOrderByKeys()
		plan = mc.memorySort(&Concatenate{Sources: sources})
	case len(mc.currentOrderBy) > 0:
		plan = &MergeSort{Sources: sources, OrderBy: mc.currentOrderBy, Nulls: mc.opts.nulls}
	default:
		plan = &Concatenate{Sources: sources}
	}

	stmt := mc.stmt
	switch {
	case len(stmt.GroupBy) > 0:
		keys := make([]int, len(stmt.GroupBy))
		for i, g := range stmt.GroupBy {
			keys[i] = g.Index - 1
		}
		plan = &OrderedAggregate{
			Input:       plan,
			GroupByKeys: keys,
			Aggregates:  newAggregateParams(stmt.Aggregations),
			Nulls:       mc.opts.nulls,
		}
	case len(stmt.Aggregations) > 0:
		plan = &ScalarAggregate{
			Input:      plan,
			Aggregates: newAggregateParams(stmt.Aggregations),
			Width:      mc.width,
		}
	}

	if mc.NeedsMemorySortForOrderBy() {
		mc.SetOrderByKeysToCurrentOrderByKeys()
		plan = mc.memorySort(plan)
		mode = ModeMemorySort
	}

	if l := stmt.Limit; l != nil && (l.Offset > 0 || l.HasRowCount) {
		plan = &Limit{Input: plan, Offset: l.Offset, RowCount: l.RowCount, HasRowCount: l.HasRowCount}
	}
	return &Truncate{Input: plan, ColumnCount: mc.declared}, mode
}

func (mc *MergeContext) memorySort(input Primitive) *MemorySort {
	return &MemorySort{
		Input:         input,
		OrderBy:       mc.currentOrderBy,
		Nulls:         mc.opts.nulls,
		MaxMemoryRows: mc.opts.maxMemoryRows,
	}
}
