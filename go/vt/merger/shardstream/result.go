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

package shardstream

import (
	"context"
	"io"
	"sync/atomic"

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Stream = (*ResultStream)(nil)

// ResultStream streams the rows of a materialized result.
type ResultStream struct {
	shard  string
	result *sqltypes.Result
	pos    int
	closed atomic.Bool
}

// NewResultStream returns a Stream over the rows of result.
func NewResultStream(shard string, result *sqltypes.Result) *ResultStream {
	if result == nil {
		result = &sqltypes.Result{}
	}
	return &ResultStream{shard: shard, result: result}
}

// Shard implements Stream.
func (rs *ResultStream) Shard() string {
	return rs.shard
}

// Fields implements Stream.
func (rs *ResultStream) Fields() []*sqltypes.Field {
	return rs.result.Fields
}

// Next implements Stream.
func (rs *ResultStream) Next(ctx context.Context) (sqltypes.Row, error) {
	if rs.closed.Load() {
		return nil, errClosed(rs.shard)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rs.pos >= len(rs.result.Rows) {
		return nil, io.EOF
	}
	row := rs.result.Rows[rs.pos]
	rs.pos++
	return row, nil
}

// Close implements Stream.
func (rs *ResultStream) Close() error {
	rs.closed.Store(true)
	return nil
}

// Closed returns true once Close was called.
func (rs *ResultStream) Closed() bool {
	return rs.closed.Load()
}
