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
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Primitive = (*Concatenate)(nil)

// Concatenate returns the rows of its sources one source after the other,
// in source order.
type Concatenate struct {
	Sources []Primitive

	current int
}

// Fields implements the Primitive interface
func (c *Concatenate) Fields() []*sqltypes.Field {
	if len(c.Sources) == 0 {
		return nil
	}
	return c.Sources[0].Fields()
}

// Next implements the Primitive interface
func (c *Concatenate) Next(ctx context.Context) (sqltypes.Row, error) {
	for c.current < len(c.Sources) {
		row, err := c.Sources[c.current].Next(ctx)
		if err == io.EOF {
			c.current++
			continue
		}
		return row, err
	}
	return nil, io.EOF
}

// drain reads every source concurrently and returns all rows, in source
// order. The first failure cancels the other readers.
func (c *Concatenate) drain(ctx context.Context, budget *rowBudget) ([]sqltypes.Row, error) {
	results := make([][]sqltypes.Row, len(c.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range c.Sources[c.current:] {
		g.Go(func() error {
			for {
				row, err := source.Next(gctx)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				if err := budget.add(1); err != nil {
					return err
				}
				results[i] = append(results[i], row)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.current = len(c.Sources)

	var rows []sqltypes.Row
	for _, r := range results {
		rows = append(rows, r...)
	}
	return rows, nil
}

// Close implements the Primitive interface
func (c *Concatenate) Close() error {
	return closeInputs(c.Sources)
}

// Inputs implements the Primitive interface
func (c *Concatenate) Inputs() []Primitive {
	return c.Sources
}

func (c *Concatenate) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Concatenate",
		Other:        map[string]string{"Sources": strconv.Itoa(len(c.Sources))},
	}
}

// drainRows reads all rows of in.
func drainRows(ctx context.Context, in Primitive, budget *rowBudget) ([]sqltypes.Row, error) {
	if c, ok := in.(*Concatenate); ok {
		return c.drain(ctx, budget)
	}
	var rows []sqltypes.Row
	for {
		row, err := in.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if err := budget.add(1); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// rowBudget counts buffered rows against an optional limit. It is shared
// by the readers of a drain.
type rowBudget struct {
	limit int
	used  atomic.Int64
}

func newRowBudget(limit int) *rowBudget {
	return &rowBudget{limit: limit}
}

func (b *rowBudget) add(n int) error {
	used := b.used.Add(int64(n))
	if b.limit > 0 && used > int64(b.limit) {
		return memoryLimitExceeded(b.limit)
	}
	return nil
}
