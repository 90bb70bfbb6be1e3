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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/opcode"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

func TestComparer(t *testing.T) {
	tests := []struct {
		comparer comparer
		row1     sqltypes.Row
		row2     sqltypes.Row
		output   int
	}{
		{
			comparer: comparer{orderBy: 0},
			row1:     sqltypes.Row{sqltypes.NewInt64(1)},
			row2:     sqltypes.Row{sqltypes.NewInt64(2)},
			output:   -1,
		}, {
			comparer: comparer{orderBy: 0, desc: true},
			row1:     sqltypes.Row{sqltypes.NewInt64(1)},
			row2:     sqltypes.Row{sqltypes.NewInt64(2)},
			output:   1,
		}, {
			comparer: comparer{orderBy: 1},
			row1:     sqltypes.Row{sqltypes.NewInt64(9), sqltypes.NewVarChar("b")},
			row2:     sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NewVarChar("b")},
			output:   0,
		}, {
			// NULL sorts first ascending.
			comparer: comparer{orderBy: 0},
			row1:     sqltypes.Row{sqltypes.NULL},
			row2:     sqltypes.Row{sqltypes.NewInt64(1)},
			output:   -1,
		}, {
			// and last descending.
			comparer: comparer{orderBy: 0, desc: true},
			row1:     sqltypes.Row{sqltypes.NULL},
			row2:     sqltypes.Row{sqltypes.NewInt64(1)},
			output:   1,
		}, {
			comparer: comparer{orderBy: 0, nullsHigh: true},
			row1:     sqltypes.Row{sqltypes.NULL},
			row2:     sqltypes.Row{sqltypes.NewInt64(1)},
			output:   1,
		}, {
			comparer: comparer{orderBy: 0, desc: true, nullsHigh: true},
			row1:     sqltypes.Row{sqltypes.NULL},
			row2:     sqltypes.Row{sqltypes.NewInt64(1)},
			output:   -1,
		}, {
			comparer: comparer{orderBy: 0, nullsHigh: true},
			row1:     sqltypes.Row{sqltypes.NULL},
			row2:     sqltypes.Row{sqltypes.NULL},
			output:   0,
		}, {
			comparer: comparer{orderBy: 0},
			row1:     sqltypes.Row{sqltypes.NewDecimal("2.50")},
			row2:     sqltypes.Row{sqltypes.NewInt64(2)},
			output:   1,
		}, {
			comparer: comparer{orderBy: 0},
			row1:     sqltypes.Row{sqltypes.TestValue(sqltypes.Datetime, "2024-01-02 00:00:00")},
			row2:     sqltypes.Row{sqltypes.TestValue(sqltypes.Datetime, "2023-12-31 23:59:59")},
			output:   1,
		},
	}

	for _, test := range tests {
		got, err := test.comparer.compare(test.row1, test.row2)
		require.NoError(t, err)
		assert.Equalf(t, test.output, got, "compare(%v, %v) with %+v", test.row1, test.row2, test.comparer)
	}
}

func TestComparers(t *testing.T) {
	keys := []*statement.OrderByItem{
		{Index: 2},
		{Index: 1, Direction: opcode.Descending},
	}
	cmps := newComparers(keys, NullsLow)
	require.Len(t, cmps, 2)
	assert.Equal(t, comparer{orderBy: 1}, *cmps[0])
	assert.Equal(t, comparer{orderBy: 0, desc: true}, *cmps[1])

	r1 := sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NewVarChar("a")}
	r2 := sqltypes.Row{sqltypes.NewInt64(2), sqltypes.NewVarChar("a")}
	cmp, err := cmps.compare(r1, r2)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	cmp, err = cmps.compare(r1, r1)
	require.NoError(t, err)
	assert.Zero(t, cmp)

	_, err = cmps.compare(
		sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NewVarChar("abc")},
		sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NewInt64(5)},
	)
	require.EqualError(t, err, "could not parse value: 'abc'")

	high := newComparers(keys, NullsHigh)
	assert.True(t, high[0].nullsHigh)
}
