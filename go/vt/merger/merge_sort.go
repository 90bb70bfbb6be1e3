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
	"container/heap"
	"context"
	"io"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

var _ Primitive = (*MergeSort)(nil)

// MergeSort performs a k-way merge of sources that are each sorted by
// OrderBy. It holds one row per source. Rows that compare equal are
// returned in source order, so the output matches a stable sort of the
// concatenated sources.
type MergeSort struct {
	Sources []Primitive
	OrderBy []*statement.OrderByItem
	Nulls   NullsOrder

	started bool
	sh      *scatterHeap
}

// Fields implements the Primitive interface
func (ms *MergeSort) Fields() []*sqltypes.Field {
	if len(ms.Sources) == 0 {
		return nil
	}
	return ms.Sources[0].Fields()
}

// Next implements the Primitive interface
func (ms *MergeSort) Next(ctx context.Context) (sqltypes.Row, error) {
	if !ms.started {
		if err := ms.prime(ctx); err != nil {
			return nil, err
		}
		ms.started = true
	}
	if ms.sh.Len() == 0 {
		return nil, io.EOF
	}

	sr := heap.Pop(ms.sh).(streamRow)
	if ms.sh.err != nil {
		return nil, ms.sh.err
	}
	next, err := ms.Sources[sr.source].Next(ctx)
	switch {
	case err == nil:
		heap.Push(ms.sh, streamRow{row: next, source: sr.source})
		if ms.sh.err != nil {
			return nil, ms.sh.err
		}
	case err != io.EOF:
		return nil, err
	}
	return sr.row, nil
}

// prime reads the first row of every source.
func (ms *MergeSort) prime(ctx context.Context) error {
	ms.sh = &scatterHeap{comparers: newComparers(ms.OrderBy, ms.Nulls)}
	for i, source := range ms.Sources {
		row, err := source.Next(ctx)
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		ms.sh.rows = append(ms.sh.rows, streamRow{row: row, source: i})
	}
	heap.Init(ms.sh)
	return ms.sh.err
}

// Close implements the Primitive interface
func (ms *MergeSort) Close() error {
	return closeInputs(ms.Sources)
}

// Inputs implements the Primitive interface
func (ms *MergeSort) Inputs() []Primitive {
	return ms.Sources
}

func (ms *MergeSort) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Sort",
		Variant:      "Merge",
		Other:        map[string]string{"OrderBy": joinKeys(ms.OrderBy)},
	}
}

// streamRow is a row together with the index of the source it came from.
type streamRow struct {
	row    sqltypes.Row
	source int
}

// scatterHeap is the heap of the current row of every source. A comparison
// failure is kept in err and ends the merge.
type scatterHeap struct {
	rows      []streamRow
	comparers comparers
	err       error
}

// Len satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Len() int {
	return len(sh.rows)
}

// Less satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Less(i, j int) bool {
	if sh.err != nil {
		return true
	}
	cmp, err := sh.comparers.compare(sh.rows[i].row, sh.rows[j].row)
	if err != nil {
		sh.err = err
		return true
	}
	if cmp == 0 {
		return sh.rows[i].source < sh.rows[j].source
	}
	return cmp < 0
}

// Swap satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Swap(i, j int) {
	sh.rows[i], sh.rows[j] = sh.rows[j], sh.rows[i]
}

// Push satisfies heap.Interface.
func (sh *scatterHeap) Push(x any) {
	sh.rows = append(sh.rows, x.(streamRow))
}

// Pop satisfies heap.Interface.
func (sh *scatterHeap) Pop() any {
	n := len(sh.rows)
	x := sh.rows[n-1]
	sh.rows = sh.rows[:n-1]
	return x
}
