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
	"fmt"
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/opcode"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// avgScaleIncrement is the number of digits a decimal AVG gains over its
// SUM, as with MySQL's div_precision_increment.
const avgScaleIncrement = 4

// AggregateParams specify the parameters for one aggregate merged by
// OrderedAggregate or ScalarAggregate. Columns are 0-based.
type AggregateParams struct {
	Opcode opcode.AggregateOpcode
	Col    int
	Alias  string

	// SumCol and CountCol are the derived columns of an AVG.
	SumCol   int
	CountCol int
}

func (ap *AggregateParams) String() string {
	keyCol := ap.Alias
	if keyCol == "" {
		keyCol = fmt.Sprintf("%d", ap.Col)
	}
	if ap.Opcode.NeedsDerivedColumns() {
		return fmt.Sprintf("%s(%s) from %d/%d", ap.Opcode, keyCol, ap.SumCol, ap.CountCol)
	}
	return fmt.Sprintf("%s(%s)", ap.Opcode, keyCol)
}

// newAggregateParams binds the aggregations of a resolved statement to
// 0-based columns.
func newAggregateParams(aggrs []*statement.AggregationColumn) []*AggregateParams {
	params := make([]*AggregateParams, len(aggrs))
	for i, a := range aggrs {
		p := &AggregateParams{Opcode: a.Kind, Col: a.Index - 1, Alias: a.Label(), SumCol: -1, CountCol: -1}
		if a.Kind.NeedsDerivedColumns() && len(a.Derived) == 2 {
			p.SumCol = a.Derived[0].Index - 1
			p.CountCol = a.Derived[1].Index - 1
		}
		params[i] = p
	}
	return params
}

// aggregator folds the values of one aggregate over the rows of a group.
type aggregator interface {
	reset()
	add(row sqltypes.Row) error
	// finish writes the merged value into row.
	finish(row sqltypes.Row) error
}

func newAggregator(p *AggregateParams, fields []*sqltypes.Field) (aggregator, error) {
	switch p.Opcode {
	case opcode.AggregateCount:
		return &aggregatorCount{col: p.Col}, nil
	case opcode.AggregateSum:
		return &aggregatorSum{col: p.Col, typ: columnSumType(fields, p.Col)}, nil
	case opcode.AggregateMax:
		return &aggregatorMinMax{col: p.Col, max: true}, nil
	case opcode.AggregateMin:
		return &aggregatorMinMax{col: p.Col}, nil
	case opcode.AggregateAvg:
		if p.SumCol < 0 || p.CountCol < 0 {
			return nil, vterrors.Errorf(vtrpc.CodeInternal, "AVG(%s) has no derived columns", p.Alias)
		}
		return &aggregatorAvg{
			col:   p.Col,
			sum:   aggregatorSum{col: p.SumCol, typ: columnSumType(fields, p.SumCol)},
			count: aggregatorCount{col: p.CountCol},
		}, nil
	}
	return nil, vterrors.Errorf(vtrpc.CodeUnimplemented, "unsupported aggregate %s", p.Opcode)
}

func newAggregators(params []*AggregateParams, fields []*sqltypes.Field) ([]aggregator, error) {
	aggrs := make([]aggregator, len(params))
	for i, p := range params {
		a, err := newAggregator(p, fields)
		if err != nil {
			return nil, err
		}
		aggrs[i] = a
	}
	return aggrs, nil
}

// columnSumType is the type SUM yields for column col, or Null when the
// metadata does not tell and the type is taken from the values.
func columnSumType(fields []*sqltypes.Field, col int) sqltypes.Type {
	if col < 0 || col >= len(fields) {
		return sqltypes.Null
	}
	return opcode.AggregateSum.SQLType(fields[col].Type)
}

type aggregatorCount struct {
	col   int
	count sqltypes.Value
}

func (a *aggregatorCount) reset() {
	a.count = sqltypes.NULL
}

func (a *aggregatorCount) add(row sqltypes.Row) (err error) {
	a.count, err = sqltypes.NullSafeAdd(a.count, row[a.col], sqltypes.Int64)
	return err
}

func (a *aggregatorCount) result() sqltypes.Value {
	if a.count.IsNull() {
		return sqltypes.NewInt64(0)
	}
	return a.count
}

func (a *aggregatorCount) finish(row sqltypes.Row) error {
	row[a.col] = a.result()
	return nil
}

type aggregatorSum struct {
	col int
	typ sqltypes.Type
	sum sqltypes.Value
}

func (a *aggregatorSum) reset() {
	a.sum = sqltypes.NULL
}

func (a *aggregatorSum) add(row sqltypes.Row) (err error) {
	v := row[a.col]
	if v.IsNull() {
		return nil
	}
	typ := a.typ
	if typ == sqltypes.Null {
		typ = opcode.AggregateSum.SQLType(v.Type())
		if typ == sqltypes.Null {
			typ = sqltypes.Decimal
		}
	}
	a.sum, err = sqltypes.NullSafeAdd(a.sum, v, typ)
	return err
}

func (a *aggregatorSum) finish(row sqltypes.Row) error {
	row[a.col] = a.sum
	return nil
}

type aggregatorMinMax struct {
	col   int
	max   bool
	value sqltypes.Value
}

func (a *aggregatorMinMax) reset() {
	a.value = sqltypes.NULL
}

func (a *aggregatorMinMax) add(row sqltypes.Row) error {
	v := row[a.col]
	if v.IsNull() {
		return nil
	}
	if a.value.IsNull() {
		a.value = v
		return nil
	}
	cmp, err := sqltypes.NullsafeCompare(v, a.value)
	if err != nil {
		return err
	}
	if (a.max && cmp > 0) || (!a.max && cmp < 0) {
		a.value = v
	}
	return nil
}

func (a *aggregatorMinMax) finish(row sqltypes.Row) error {
	row[a.col] = a.value
	return nil
}

// aggregatorAvg rebuilds an AVG from the SUM and COUNT the shards computed
// for it. The derived columns carry the merged SUM and COUNT.
type aggregatorAvg struct {
	col   int
	sum   aggregatorSum
	count aggregatorCount
}

func (a *aggregatorAvg) reset() {
	a.sum.reset()
	a.count.reset()
}

func (a *aggregatorAvg) add(row sqltypes.Row) error {
	if err := a.sum.add(row); err != nil {
		return err
	}
	return a.count.add(row)
}

func (a *aggregatorAvg) finish(row sqltypes.Row) error {
	count := a.count.result()
	avg, err := sqltypes.Divide(a.sum.sum, count, avgScaleIncrement)
	if err != nil {
		return err
	}
	row[a.col] = avg
	row[a.sum.col] = a.sum.sum
	row[a.count.col] = count
	return nil
}

func resetAggregators(aggrs []aggregator) {
	for _, a := range aggrs {
		a.reset()
	}
}

func addRow(aggrs []aggregator, row sqltypes.Row) error {
	for _, a := range aggrs {
		if err := a.add(row); err != nil {
			return err
		}
	}
	return nil
}

func finishRow(aggrs []aggregator, row sqltypes.Row) error {
	for _, a := range aggrs {
		if err := a.finish(row); err != nil {
			return err
		}
	}
	return nil
}

func joinAggregates(params []*AggregateParams) string {
	s := make([]string, len(params))
	for i, p := range params {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}
