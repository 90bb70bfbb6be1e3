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
	"strconv"

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Primitive = (*Truncate)(nil)

// Truncate drops the columns after the first ColumnCount: the derived
// columns the client never asked for.
type Truncate struct {
	Input       Primitive
	ColumnCount int
}

// Fields implements the Primitive interface
func (t *Truncate) Fields() []*sqltypes.Field {
	fields := t.Input.Fields()
	if len(fields) > t.ColumnCount {
		return fields[:t.ColumnCount]
	}
	return fields
}

// Next implements the Primitive interface
func (t *Truncate) Next(ctx context.Context) (sqltypes.Row, error) {
	row, err := t.Input.Next(ctx)
	if err != nil {
		return nil, err
	}
	if len(row) > t.ColumnCount {
		row = row[:t.ColumnCount]
	}
	return row, nil
}

// Close implements the Primitive interface
func (t *Truncate) Close() error {
	return t.Input.Close()
}

// Inputs implements the Primitive interface
func (t *Truncate) Inputs() []Primitive {
	return []Primitive{t.Input}
}

func (t *Truncate) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Truncate",
		Other:        map[string]string{"Columns": strconv.Itoa(t.ColumnCount)},
	}
}
