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
	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// MergeContext is the resolved view of one merge: the shard streams, the
// statement with every item bound to a column ordinal, and the keys the
// current row source is ordered by.
type MergeContext struct {
	stmt    *statement.Statement
	streams []shardstream.Stream
	fields  []*sqltypes.Field
	opts    options

	declared int
	// width is the highest ordinal any item or derived column refers to.
	width int

	currentOrderBy []*statement.OrderByItem
}

// NewMergeContext resolves stmt against the metadata of the shard streams.
// The items of stmt are updated in place: ordinals are filled in and every
// AVG aggregation gets its derived SUM and COUNT columns. All streams must
// report the same number of columns.
func NewMergeContext(streams []shardstream.Stream, stmt *statement.Statement, opts ...Option) (*MergeContext, error) {
	if stmt == nil {
		return nil, vterrors.New(vtrpc.CodeInvalidArgument, "no statement to merge")
	}
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	fields, err := sharedFields(streams)
	if err != nil {
		return nil, err
	}

	mc := &MergeContext{
		stmt:    stmt,
		streams: streams,
		fields:  fields,
		opts:    newOptions(opts),
	}
	if err := mc.resolve(); err != nil {
		return nil, err
	}

	mc.declared = declaredColumnCount(stmt, fields)
	next := expandDerived(stmt.Aggregations, mc.declared+1)
	mc.width = max(stmt.MaxDeclaredIndex(), next-1)
	if len(fields) > 0 && len(fields) < mc.width {
		return nil, newRowProjectionMismatch(streams[0].Shard(), mc.width, len(fields))
	}

	mc.currentOrderBy = copyOrderBy(stmt.OrderBy)
	return mc, nil
}

func (mc *MergeContext) resolve() error {
	r := &columnResolver{fields: mc.fields, caseSensitive: mc.opts.caseSensitive}
	for _, o := range mc.stmt.OrderBy {
		idx, err := r.resolveItem(o.Label(), o.Index)
		if err != nil {
			return err
		}
		o.Index = idx
	}
	for _, g := range mc.stmt.GroupBy {
		idx, err := r.resolveItem(g.Label(), g.Index)
		if err != nil {
			return err
		}
		g.Index = idx
	}
	for _, a := range mc.stmt.Aggregations {
		idx, err := r.resolveItem(a.Label(), a.Index)
		if err != nil {
			return err
		}
		a.Index = idx
	}
	return nil
}

// sharedFields returns the metadata of the first stream after checking the
// other streams have as many columns.
func sharedFields(streams []shardstream.Stream) ([]*sqltypes.Field, error) {
	if len(streams) == 0 {
		return nil, nil
	}
	fields := streams[0].Fields()
	for _, s := range streams[1:] {
		if got := len(s.Fields()); got != len(fields) {
			return nil, newRowProjectionMismatch(s.Shard(), len(fields), got)
		}
	}
	return fields, nil
}

func copyOrderBy(items []*statement.OrderByItem) []*statement.OrderByItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]*statement.OrderByItem, len(items))
	for i, o := range items {
		c := *o
		out[i] = &c
	}
	return out
}

// Statement returns the resolved statement.
func (mc *MergeContext) Statement() *statement.Statement {
	return mc.stmt
}

// Streams returns the shard streams in shard order.
func (mc *MergeContext) Streams() []shardstream.Stream {
	return mc.streams
}

// Fields returns the shard result metadata, derived columns included.
func (mc *MergeContext) Fields() []*sqltypes.Field {
	return mc.fields
}

// DeclaredColumnCount returns the number of columns the client sees.
func (mc *MergeContext) DeclaredColumnCount() int {
	return mc.declared
}

// CurrentOrderByKeys returns the keys the current row source is sorted by.
// They start as the ORDER BY keys of the statement.
func (mc *MergeContext) CurrentOrderByKeys() []*statement.OrderByItem {
	return mc.currentOrderBy
}
