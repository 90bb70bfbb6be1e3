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
	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

// comparer compares rows by one column.
type comparer struct {
	orderBy   int
	desc      bool
	nullsHigh bool
}

// compare returns -1, 0 or 1 as r1 sorts before, with or after r2.
func (c *comparer) compare(r1, r2 sqltypes.Row) (int, error) {
	cmp, err := compareValues(r1[c.orderBy], r2[c.orderBy], c.nullsHigh)
	if err != nil {
		return 0, err
	}
	if c.desc {
		cmp = -cmp
	}
	return cmp, nil
}

// compareValues orders v1 and v2 ascending. NULL is the lowest value
// unless nullsHigh is set.
func compareValues(v1, v2 sqltypes.Value, nullsHigh bool) (int, error) {
	if nullsHigh && v1.IsNull() != v2.IsNull() {
		if v1.IsNull() {
			return 1, nil
		}
		return -1, nil
	}
	return sqltypes.NullsafeCompare(v1, v2)
}

type comparers []*comparer

func newComparers(keys []*statement.OrderByItem, nulls NullsOrder) comparers {
	cmps := make(comparers, len(keys))
	for i, k := range keys {
		cmps[i] = &comparer{
			orderBy:   k.Index - 1,
			desc:      k.Direction.IsDesc(),
			nullsHigh: nulls == NullsHigh,
		}
	}
	return cmps
}

// compare compares two rows key by key. The first key that differs decides.
func (cmps comparers) compare(r1, r2 sqltypes.Row) (int, error) {
	for _, c := range cmps {
		cmp, err := c.compare(r1, r2)
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}
