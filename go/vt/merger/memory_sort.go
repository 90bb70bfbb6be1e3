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
	"sort"
	"strconv"
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

var _ Primitive = (*MemorySort)(nil)

// MemorySort buffers every row of its input and returns them sorted by
// OrderBy. The sort is stable: rows with equal keys keep their input order.
// When the input is a Concatenate, its sources are read concurrently.
type MemorySort struct {
	Input   Primitive
	OrderBy []*statement.OrderByItem
	Nulls   NullsOrder
	// MaxMemoryRows fails the sort once more rows are buffered. 0 is
	// unbounded.
	MaxMemoryRows int

	loaded bool
	rows   []sqltypes.Row
	pos    int
}

// Fields implements the Primitive interface
func (ms *MemorySort) Fields() []*sqltypes.Field {
	return ms.Input.Fields()
}

// Next implements the Primitive interface
func (ms *MemorySort) Next(ctx context.Context) (sqltypes.Row, error) {
	if !ms.loaded {
		if err := ms.load(ctx); err != nil {
			return nil, err
		}
		ms.loaded = true
	}
	if ms.pos >= len(ms.rows) {
		return nil, io.EOF
	}
	row := ms.rows[ms.pos]
	ms.rows[ms.pos] = nil
	ms.pos++
	return row, nil
}

func (ms *MemorySort) load(ctx context.Context) error {
	rows, err := drainRows(ctx, ms.Input, newRowBudget(ms.MaxMemoryRows))
	if err != nil {
		return err
	}
	InitializeMetrics().rowsBuffered.Add(int64(len(rows)))
	log.V(1).Infof("memory sort by %s buffered %d rows", joinKeys(ms.OrderBy), len(rows))
	if err := sortRows(rows, newComparers(ms.OrderBy, ms.Nulls)); err != nil {
		return err
	}
	ms.rows = rows
	return nil
}

// sortRows sorts rows stably by cmps. The first comparison failure is
// returned.
func sortRows(rows []sqltypes.Row, cmps comparers) error {
	var err error
	sort.SliceStable(rows, func(i, j int) bool {
		if err != nil {
			return false
		}
		cmp, cerr := cmps.compare(rows[i], rows[j])
		if cerr != nil {
			err = cerr
			return false
		}
		return cmp < 0
	})
	return err
}

// Close implements the Primitive interface
func (ms *MemorySort) Close() error {
	ms.rows = nil
	return ms.Input.Close()
}

// Inputs implements the Primitive interface
func (ms *MemorySort) Inputs() []Primitive {
	return []Primitive{ms.Input}
}

func (ms *MemorySort) description() PlanDescription {
	other := map[string]string{"OrderBy": joinKeys(ms.OrderBy)}
	if ms.MaxMemoryRows > 0 {
		other["MaxMemoryRows"] = strconv.Itoa(ms.MaxMemoryRows)
	}
	return PlanDescription{
		OperatorType: "Sort",
		Variant:      "Memory",
		Other:        other,
	}
}

func joinKeys(keys []*statement.OrderByItem) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}
