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
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Primitive = (*OrderedAggregate)(nil)

// OrderedAggregate merges the partial aggregates of rows sorted by the
// grouping keys. Consecutive rows with equal keys form one group and are
// returned as one row: the first row of the group with every aggregate
// column replaced by the merged value.
type OrderedAggregate struct {
	Input Primitive
	// GroupByKeys are the 0-based grouping columns.
	GroupByKeys []int
	Aggregates  []*AggregateParams
	Nulls       NullsOrder

	aggrs   []aggregator
	current sqltypes.Row
	done    bool
}

// Fields implements the Primitive interface
func (oa *OrderedAggregate) Fields() []*sqltypes.Field {
	return oa.Input.Fields()
}

// Next implements the Primitive interface
func (oa *OrderedAggregate) Next(ctx context.Context) (sqltypes.Row, error) {
	if oa.done {
		return nil, io.EOF
	}
	if oa.aggrs == nil {
		aggrs, err := newAggregators(oa.Aggregates, oa.Input.Fields())
		if err != nil {
			return nil, err
		}
		oa.aggrs = aggrs
	}
	if oa.current == nil {
		row, err := oa.Input.Next(ctx)
		if err == io.EOF {
			oa.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if err := oa.startGroup(row); err != nil {
			return nil, err
		}
	}

	for {
		row, err := oa.Input.Next(ctx)
		if err == io.EOF {
			oa.done = true
			return oa.finishGroup()
		}
		if err != nil {
			return nil, err
		}
		same, err := oa.sameGroup(oa.current, row)
		if err != nil {
			return nil, err
		}
		if same {
			if err := addRow(oa.aggrs, row); err != nil {
				return nil, err
			}
			continue
		}
		out, err := oa.finishGroup()
		if err != nil {
			return nil, err
		}
		if err := oa.startGroup(row); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (oa *OrderedAggregate) startGroup(row sqltypes.Row) error {
	oa.current = sqltypes.CopyRow(row)
	resetAggregators(oa.aggrs)
	return addRow(oa.aggrs, row)
}

func (oa *OrderedAggregate) finishGroup() (sqltypes.Row, error) {
	out := oa.current
	oa.current = nil
	if err := finishRow(oa.aggrs, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (oa *OrderedAggregate) sameGroup(r1, r2 sqltypes.Row) (bool, error) {
	for _, key := range oa.GroupByKeys {
		cmp, err := compareValues(r1[key], r2[key], oa.Nulls == NullsHigh)
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Close implements the Primitive interface
func (oa *OrderedAggregate) Close() error {
	return oa.Input.Close()
}

// Inputs implements the Primitive interface
func (oa *OrderedAggregate) Inputs() []Primitive {
	return []Primitive{oa.Input}
}

func (oa *OrderedAggregate) description() PlanDescription {
	keys := make([]string, len(oa.GroupByKeys))
	for i, k := range oa.GroupByKeys {
		keys[i] = strconv.Itoa(k)
	}
	other := map[string]string{"GroupBy": strings.Join(keys, ", ")}
	if len(oa.Aggregates) > 0 {
		other["Aggregates"] = joinAggregates(oa.Aggregates)
	}
	return PlanDescription{
		OperatorType: "Aggregate",
		Variant:      "Ordered",
		Other:        other,
	}
}
