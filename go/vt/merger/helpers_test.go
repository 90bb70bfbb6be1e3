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
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
)

// shards returns one result stream per result, named s0, s1 and so on.
func shards(results ...*sqltypes.Result) ([]shardstream.Stream, []*shardstream.ResultStream) {
	streams := make([]shardstream.Stream, len(results))
	rs := make([]*shardstream.ResultStream, len(results))
	for i, r := range results {
		rs[i] = shardstream.NewResultStream(fmt.Sprintf("s%d", i), r)
		streams[i] = rs[i]
	}
	return streams, rs
}

func requireClosed(t *testing.T, streams []*shardstream.ResultStream) {
	t.Helper()
	for _, s := range streams {
		require.Truef(t, s.Closed(), "shard %s was not closed", s.Shard())
	}
}

// failingStream fails with err once it has returned n rows.
type failingStream struct {
	*shardstream.ResultStream
	n   int
	err error
}

func (f *failingStream) Next(ctx context.Context) (sqltypes.Row, error) {
	if f.n == 0 {
		return nil, f.err
	}
	f.n--
	return f.ResultStream.Next(ctx)
}

// blockingStream returns its rows, then blocks until the context is done.
type blockingStream struct {
	*shardstream.ResultStream
}

func (b *blockingStream) Next(ctx context.Context) (sqltypes.Row, error) {
	row, err := b.ResultStream.Next(ctx)
	if err != io.EOF {
		return row, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}
