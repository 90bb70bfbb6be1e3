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
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

// NeedsMemorySortForGroupBy reports whether rows must be re-sorted by the
// GROUP BY keys before they can be grouped: the statement groups, and the
// current keys do not start with the GROUP BY keys.
func (mc *MergeContext) NeedsMemorySortForGroupBy() bool {
	if len(mc.stmt.GroupBy) == 0 {
		return false
	}
	keys := make([]*statement.OrderByItem, len(mc.stmt.GroupBy))
	for i, g := range mc.stmt.GroupBy {
		keys[i] = g.ToOrderBy()
	}
	return !isPrefix(keys, mc.currentOrderBy)
}

// SetGroupByKeysToCurrentOrderByKeys records that the row source is now
// sorted by the GROUP BY keys.
func (mc *MergeContext) SetGroupByKeysToCurrentOrderByKeys() {
	mc.currentOrderBy = make([]*statement.OrderByItem, len(mc.stmt.GroupBy))
	for i, g := range mc.stmt.GroupBy {
		mc.currentOrderBy[i] = g.ToOrderBy()
	}
}

// NeedsMemorySortForOrderBy reports whether the rows must be sorted again
// to honor the ORDER BY of the statement.
func (mc *MergeContext) NeedsMemorySortForOrderBy() bool {
	if len(mc.stmt.OrderBy) == 0 {
		return false
	}
	return !isPrefix(mc.stmt.OrderBy, mc.currentOrderBy)
}

// SetOrderByKeysToCurrentOrderByKeys records that the row source is now
// sorted by the ORDER BY keys.
func (mc *MergeContext) SetOrderByKeysToCurrentOrderByKeys() {
	mc.currentOrderBy = copyOrderBy(mc.stmt.OrderBy)
}

// isPrefix reports whether keys is a prefix of current.
func isPrefix(keys, current []*statement.OrderByItem) bool {
	if len(current) < len(keys) {
		return false
	}
	for i, k := range keys {
		if !k.Equal(current[i]) {
			return false
		}
	}
	return true
}
