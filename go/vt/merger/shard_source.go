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

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
)

var _ Primitive = (*ShardSource)(nil)

// ShardSource is the leaf of every plan. It reads one shard stream, checks
// every row is wide enough for the merge, and attributes failures to the
// shard.
type ShardSource struct {
	Stream shardstream.Stream
}

func newShardSource(s shardstream.Stream, width, prefetch int) *ShardSource {
	s = shardstream.Check(s, shardstream.MinWidth(width, newRowProjectionMismatch))
	return &ShardSource{Stream: shardstream.Prefetch(s, prefetch)}
}

// Fields implements the Primitive interface
func (ss *ShardSource) Fields() []*sqltypes.Field {
	return ss.Stream.Fields()
}

// Next implements the Primitive interface
func (ss *ShardSource) Next(ctx context.Context) (sqltypes.Row, error) {
	row, err := ss.Stream.Next(ctx)
	if err != nil {
		return nil, wrapShardError(ss.Stream.Shard(), err)
	}
	return row, nil
}

// Close implements the Primitive interface
func (ss *ShardSource) Close() error {
	return wrapShardError(ss.Stream.Shard(), ss.Stream.Close())
}

// Inputs implements the Primitive interface
func (ss *ShardSource) Inputs() []Primitive {
	return nil
}

func (ss *ShardSource) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Shard",
		Other:        map[string]string{"Shard": ss.Stream.Shard()},
	}
}
