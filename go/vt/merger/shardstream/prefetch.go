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
	"sync"
	"sync/atomic"

	"shardmerge.io/shardmerge/go/sqltypes"
)

type prefetched struct {
	row sqltypes.Row
	err error
}

var _ Stream = (*prefetchStream)(nil)

// prefetchStream reads rows of its input ahead of the consumer from a
// goroutine, at most size rows at a time.
type prefetchStream struct {
	in   Stream
	size int

	start  sync.Once
	ctx    context.Context
	ch     chan prefetched
	done   chan struct{}
	cancel context.CancelFunc

	// final is the error, io.EOF included, that ended the stream.
	final error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Prefetch returns a Stream that reads up to size rows of s ahead of the
// caller. The reader goroutine starts on the first Next and runs under the
// context of that call. Close stops the reader before closing s.
// A size of 0 or less returns s unchanged.
func Prefetch(s Stream, size int) Stream {
	if size <= 0 {
		return s
	}
	return &prefetchStream{in: s, size: size}
}

// Shard implements Stream.
func (p *prefetchStream) Shard() string {
	return p.in.Shard()
}

// Fields implements Stream.
func (p *prefetchStream) Fields() []*sqltypes.Field {
	return p.in.Fields()
}

// Next implements Stream.
func (p *prefetchStream) Next(ctx context.Context) (sqltypes.Row, error) {
	if p.closed.Load() {
		return nil, errClosed(p.in.Shard())
	}
	if p.final != nil {
		return nil, p.final
	}
	p.start.Do(func() { p.run(ctx) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-p.ch:
		if !ok {
			// The reader only stops without a final item when canceled.
			p.final = p.ctx.Err()
			if p.final == nil {
				p.final = io.EOF
			}
			return nil, p.final
		}
		if item.err != nil {
			p.final = item.err
			return nil, item.err
		}
		return item.row, nil
	}
}

func (p *prefetchStream) run(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.ctx = ctx
	p.ch = make(chan prefetched, p.size)
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		defer close(p.ch)
		for {
			row, err := p.in.Next(ctx)
			select {
			case p.ch <- prefetched{row: row, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

// Close implements Stream.
func (p *prefetchStream) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		// Keeps a later Next from starting the reader.
		p.start.Do(func() {})
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
		p.closeErr = p.in.Close()
	})
	return p.closeErr
}
