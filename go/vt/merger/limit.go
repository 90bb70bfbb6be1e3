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

	"shardmerge.io/shardmerge/go/sqltypes"
)

var _ Primitive = (*Limit)(nil)

// Limit skips the first Offset rows of its input and returns at most
// RowCount of the rest. Without HasRowCount every row after the offset is
// returned.
type Limit struct {
	Input       Primitive
	Offset      int
	RowCount    int
	HasRowCount bool

	skipped bool
	emitted int
}

// Fields implements the Primitive interface
func (l *Limit) Fields() []*sqltypes.Field {
	return l.Input.Fields()
}

// Next implements the Primitive interface
func (l *Limit) Next(ctx context.Context) (sqltypes.Row, error) {
	if l.HasRowCount && l.emitted >= l.RowCount {
		return nil, io.EOF
	}
	if !l.skipped {
		for i := 0; i < l.Offset; i++ {
			if _, err := l.Input.Next(ctx); err != nil {
				return nil, err
			}
		}
		l.skipped = true
	}
	row, err := l.Input.Next(ctx)
	if err != nil {
		return nil, err
	}
	l.emitted++
	return row, nil
}

// Close implements the Primitive interface
func (l *Limit) Close() error {
	return l.Input.Close()
}

// Inputs implements the Primitive interface
func (l *Limit) Inputs() []Primitive {
	return []Primitive{l.Input}
}

func (l *Limit) description() PlanDescription {
	other := map[string]string{}
	if l.HasRowCount {
		other["Count"] = strconv.Itoa(l.RowCount)
	}
	if l.Offset > 0 {
		other["Offset"] = strconv.Itoa(l.Offset)
	}
	return PlanDescription{
		OperatorType: "Limit",
		Other:        other,
	}
}
