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
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/vterrors"
)

// Cursor iterates over the merged rows. It is not safe for concurrent use.
type Cursor struct {
	mc   *MergeContext
	plan Primitive
	mode Mode
	id   string

	start time.Time
	rows  int64
	err   error
	done  bool

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

func newCursor(mc *MergeContext, plan Primitive, mode Mode) *Cursor {
	return &Cursor{
		mc:    mc,
		plan:  plan,
		mode:  mode,
		id:    uuid.NewString(),
		start: time.Now(),
	}
}

// Fields returns the metadata of the merged rows. Derived columns are not
// part of it.
func (c *Cursor) Fields() []*sqltypes.Field {
	return c.plan.Fields()
}

// Next returns the next merged row, or io.EOF after the last one. After
// an error every following call returns the same error.
func (c *Cursor) Next(ctx context.Context) (sqltypes.Row, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.done {
		return nil, io.EOF
	}
	if c.closed {
		return nil, errCursorClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(err)
	}
	row, err := c.plan.Next(ctx)
	if err == io.EOF {
		c.finish()
		return nil, io.EOF
	}
	if err != nil {
		return nil, c.fail(err)
	}
	c.rows++
	InitializeMetrics().rowsEmitted.Add(1)
	return row, nil
}

// ReadAll returns every remaining row as one result.
func (c *Cursor) ReadAll(ctx context.Context) (*sqltypes.Result, error) {
	result := &sqltypes.Result{Fields: c.Fields()}
	for {
		row, err := c.Next(ctx)
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
}

// fail ends the merge with err. Every shard is closed. Close failures are
// logged, err is what the caller sees.
func (c *Cursor) fail(err error) error {
	c.err = err
	InitializeMetrics().errors.Add(errorCode(err), 1)
	if cerr := c.release(); cerr != nil {
		log.Warningf("merge %s: closing shards after %v: %v", c.id, err, cerr)
	}
	return err
}

func (c *Cursor) finish() {
	c.done = true
	InitializeMetrics().timings.Record(c.mode.String(), c.start)
	if err := c.release(); err != nil {
		log.Warningf("merge %s: closing shards: %v", c.id, err)
	}
	log.DebugS("merge finished", "execution", c.id, "mode", c.mode.String(), "rows", c.rows, "elapsed", time.Since(c.start))
}

func (c *Cursor) release() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.plan.Close()
	})
	return c.closeErr
}

// Close closes every shard stream. It can be called more than once and
// returns the result of the first close.
func (c *Cursor) Close() error {
	c.closed = true
	return c.release()
}

// Mode returns the mode the merge runs in.
func (c *Cursor) Mode() Mode {
	return c.mode
}

// ExecutionID identifies the merge in logs.
func (c *Cursor) ExecutionID() string {
	return c.id
}

// Describe returns the plan of the merge.
func (c *Cursor) Describe() PlanDescription {
	return PrimitiveToPlanDescription(c.plan)
}

// MergeContext returns the resolved context of the merge.
func (c *Cursor) MergeContext() *MergeContext {
	return c.mc
}

func errorCode(err error) string {
	return vterrors.Code(err).String()
}
