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

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Primitive = (*ScalarAggregate)(nil)

// ScalarAggregate merges aggregates of a statement without GROUP BY into
// exactly one row. On empty input COUNT is 0 and the other aggregates are
// NULL.
type ScalarAggregate struct {
	Input      Primitive
	Aggregates []*AggregateParams
	// Width is the number of columns of the row built for empty input.
	Width int

	done bool
}

// Fields implements the Primitive interface
func (sa *ScalarAggregate) Fields() []*sqltypes.Field {
	return sa.Input.Fields()
}

// Next implements the Primitive interface
func (sa *ScalarAggregate) Next(ctx context.Context) (sqltypes.Row, error) {
	if sa.done {
		return nil, io.EOF
	}
	aggrs, err := newAggregators(sa.Aggregates, sa.Input.Fields())
	if err != nil {
		return nil, err
	}
	resetAggregators(aggrs)

	var out sqltypes.Row
	for {
		row, err := sa.Input.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = sqltypes.CopyRow(row)
		}
		if err := addRow(aggrs, row); err != nil {
			return nil, err
		}
	}
	sa.done = true

	if out == nil {
		out = make(sqltypes.Row, max(sa.Width, len(sa.Input.Fields())))
	}
	if err := finishRow(aggrs, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close implements the Primitive interface
func (sa *ScalarAggregate) Close() error {
	return sa.Input.Close()
}

// Inputs implements the Primitive interface
func (sa *ScalarAggregate) Inputs() []Primitive {
	return []Primitive{sa.Input}
}

func (sa *ScalarAggregate) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Aggregate",
		Variant:      "Scalar",
		Other:        map[string]string{"Aggregates": joinAggregates(sa.Aggregates)},
	}
}
