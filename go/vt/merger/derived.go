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
	"strconv"
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/merger/opcode"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
)

// Aliases of the helper columns the shards compute for every AVG. The
// suffix is the position of the AVG among the AVG aggregations.
const (
	DerivedSumAliasPrefix   = "AVG_DERIVED_SUM_"
	DerivedCountAliasPrefix = "AVG_DERIVED_COUNT_"
)

// avgArgument returns the argument of an AVG expression, or the expression
// itself when it is a bare column.
func avgArgument(expr string) string {
	if len(expr) > 5 && strings.EqualFold(expr[:4], "avg(") && expr[len(expr)-1] == ')' {
		return strings.TrimSpace(expr[4 : len(expr)-1])
	}
	return expr
}

// expandDerived attaches the SUM and COUNT helper columns to every AVG
// aggregation and numbers them from next on. It returns the first ordinal
// left unused. Running it twice yields the same columns.
func expandDerived(aggrs []*statement.AggregationColumn, next int) int {
	n := 0
	for _, aggr := range aggrs {
		if !aggr.Kind.NeedsDerivedColumns() {
			aggr.Derived = nil
			continue
		}
		expr := aggr.Expression
		if expr == "" {
			expr = aggr.Alias
		}
		arg := avgArgument(expr)
		suffix := strconv.Itoa(n)
		aggr.Derived = []*statement.DerivedColumn{{
			Kind:       opcode.AggregateSum,
			Expression: "SUM(" + arg + ")",
			Alias:      DerivedSumAliasPrefix + suffix,
			Index:      next,
		}, {
			Kind:       opcode.AggregateCount,
			Expression: "COUNT(" + arg + ")",
			Alias:      DerivedCountAliasPrefix + suffix,
			Index:      next + 1,
		}}
		next += 2
		n++
	}
	return next
}

// declaredColumnCount is the number of leading columns the client asked
// for. Without an explicit count, the trailing derived columns of the shard
// metadata are discounted, but never below the highest declared ordinal.
func declaredColumnCount(stmt *statement.Statement, fields []*sqltypes.Field) int {
	if stmt.DeclaredColumnCount > 0 {
		return stmt.DeclaredColumnCount
	}
	return max(len(fields)-2*stmt.AvgCount(), stmt.MaxDeclaredIndex())
}
