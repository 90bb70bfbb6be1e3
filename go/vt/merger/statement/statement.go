/*
Copyright 2023 The Vitess Authors.

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

// Package statement describes the parsed summary of a sharded statement:
// the ORDER BY, GROUP BY, aggregation and LIMIT clauses the merger must
// honor. Column ordinals are 1-based and are filled in by the merger when
// it resolves the items against the shard result metadata.
package statement

import (
	"encoding/json"
	"fmt"
	"strings"

	"shardmerge.io/shardmerge/go/vt/merger/opcode"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// OrderByItem is one ORDER BY key. Name is empty when the statement refers
// to the column by ordinal only, in which case Index is set by the parser.
type OrderByItem struct {
	Name      string           `json:"name,omitempty"`
	Alias     string           `json:"alias,omitempty"`
	Index     int              `json:"index,omitempty"`
	Direction opcode.Direction `json:"direction"`
}

// Label is the column label the item is resolved by.
func (o *OrderByItem) Label() string {
	if o.Alias != "" {
		return o.Alias
	}
	return o.Name
}

// Equal compares two keys by resolved ordinal and direction.
func (o *OrderByItem) Equal(other *OrderByItem) bool {
	return o.Index == other.Index && o.Direction == other.Direction
}

func (o *OrderByItem) String() string {
	if label := o.Label(); label != "" {
		return fmt.Sprintf("(%d|%s) %s", o.Index, label, o.Direction)
	}
	return fmt.Sprintf("%d %s", o.Index, o.Direction)
}

// GroupByItem is one GROUP BY key. Owner is the optional table qualifier.
type GroupByItem struct {
	Owner     string           `json:"owner,omitempty"`
	Name      string           `json:"name,omitempty"`
	Alias     string           `json:"alias,omitempty"`
	Index     int              `json:"index,omitempty"`
	Direction opcode.Direction `json:"direction"`
}

// Label is the column label the item is resolved by.
func (g *GroupByItem) Label() string {
	if g.Alias != "" {
		return g.Alias
	}
	return g.Name
}

// ToOrderBy projects the item to an ORDER BY key. The alias and the owner
// are dropped.
func (g *GroupByItem) ToOrderBy() *OrderByItem {
	return &OrderByItem{
		Name:      g.Name,
		Index:     g.Index,
		Direction: g.Direction,
	}
}

// DerivedColumn is a helper column the shards compute so an aggregate that
// cannot be merged directly can be rebuilt from it.
type DerivedColumn struct {
	Kind       opcode.AggregateOpcode `json:"kind"`
	Expression string                 `json:"expression"`
	Alias      string                 `json:"alias"`
	Index      int                    `json:"index"`
}

// AggregationColumn is one aggregate function of the select list.
type AggregationColumn struct {
	Kind       opcode.AggregateOpcode `json:"kind"`
	Expression string                 `json:"expression,omitempty"`
	Alias      string                 `json:"alias,omitempty"`
	Index      int                    `json:"index,omitempty"`
	Derived    []*DerivedColumn       `json:"derived,omitempty"`
}

// Label is the column label the aggregate is resolved by.
func (a *AggregationColumn) Label() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Expression
}

func (a *AggregationColumn) String() string {
	return fmt.Sprintf("%s(%d|%s)", a.Kind, a.Index, a.Label())
}

// Limit is the LIMIT clause. RowCount only applies when HasRowCount is set,
// a statement with only an OFFSET returns every row after it.
type Limit struct {
	Offset      int
	RowCount    int
	HasRowCount bool
}

type jsonLimit struct {
	Offset   int  `json:"offset,omitempty"`
	RowCount *int `json:"row_count,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l *Limit) MarshalJSON() ([]byte, error) {
	jl := jsonLimit{Offset: l.Offset}
	if l.HasRowCount {
		jl.RowCount = &l.RowCount
	}
	return json.Marshal(jl)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Limit) UnmarshalJSON(data []byte) error {
	var jl jsonLimit
	if err := json.Unmarshal(data, &jl); err != nil {
		return err
	}
	*l = Limit{Offset: jl.Offset}
	if jl.RowCount != nil {
		l.RowCount = *jl.RowCount
		l.HasRowCount = true
	}
	return nil
}

// Validate checks the offset and the row count are not negative.
func (l *Limit) Validate() error {
	if l.Offset < 0 {
		return vterrors.NewErrorf(vtrpc.CodeInvalidArgument, vterrors.WrongValue, "invalid offset %d: must not be negative", l.Offset)
	}
	if l.HasRowCount && l.RowCount < 0 {
		return vterrors.NewErrorf(vtrpc.CodeInvalidArgument, vterrors.WrongValue, "invalid row count %d: must not be negative", l.RowCount)
	}
	return nil
}

func (l *Limit) String() string {
	if !l.HasRowCount {
		return fmt.Sprintf("offset %d", l.Offset)
	}
	return fmt.Sprintf("%d offset %d", l.RowCount, l.Offset)
}

// Statement is the parsed summary of one statement.
type Statement struct {
	Kind         opcode.StatementKind `json:"kind"`
	OrderBy      []*OrderByItem       `json:"order_by,omitempty"`
	GroupBy      []*GroupByItem       `json:"group_by,omitempty"`
	Aggregations []*AggregationColumn `json:"aggregations,omitempty"`
	Limit        *Limit               `json:"limit,omitempty"`

	// DeclaredColumnCount is the number of columns the statement itself
	// selects. When 0 it is inferred from the shard metadata.
	DeclaredColumnCount int `json:"declared_column_count,omitempty"`

	// Conditions is the predicate metadata produced by the parser. It is
	// carried along and never interpreted.
	Conditions any `json:"conditions,omitempty"`
}

// AvgCount returns the number of AVG aggregates.
func (s *Statement) AvgCount() int {
	n := 0
	for _, a := range s.Aggregations {
		if a.Kind.NeedsDerivedColumns() {
			n++
		}
	}
	return n
}

// MaxDeclaredIndex returns the highest ordinal referenced by an item. Derived
// columns are not declared and are not counted.
func (s *Statement) MaxDeclaredIndex() int {
	m := 0
	for _, o := range s.OrderBy {
		m = max(m, o.Index)
	}
	for _, g := range s.GroupBy {
		m = max(m, g.Index)
	}
	for _, a := range s.Aggregations {
		m = max(m, a.Index)
	}
	return m
}

// Validate checks the statement is complete enough to be merged.
func (s *Statement) Validate() error {
	for i, o := range s.OrderBy {
		if o.Label() == "" && o.Index <= 0 {
			return vterrors.Errorf(vtrpc.CodeInvalidArgument, "order by item %d has neither a name nor an index", i+1)
		}
	}
	for i, g := range s.GroupBy {
		if g.Label() == "" && g.Index <= 0 {
			return vterrors.Errorf(vtrpc.CodeInvalidArgument, "group by item %d has neither a name nor an index", i+1)
		}
	}
	for i, a := range s.Aggregations {
		if a.Kind == opcode.AggregateUnassigned {
			return vterrors.Errorf(vtrpc.CodeInvalidArgument, "aggregation %d has no function", i+1)
		}
		if a.Label() == "" && a.Index <= 0 {
			return vterrors.Errorf(vtrpc.CodeInvalidArgument, "aggregation %d has neither an expression nor an index", i+1)
		}
	}
	if s.DeclaredColumnCount < 0 {
		return vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid declared column count %d", s.DeclaredColumnCount)
	}
	if s.Limit != nil {
		return s.Limit.Validate()
	}
	return nil
}

// Copy returns a deep copy of the statement. Conditions are shared.
func (s *Statement) Copy() *Statement {
	out := *s
	out.OrderBy = copyItems(s.OrderBy)
	out.GroupBy = copyItems(s.GroupBy)
	out.Aggregations = copyItems(s.Aggregations)
	for _, a := range out.Aggregations {
		a.Derived = copyItems(a.Derived)
	}
	if s.Limit != nil {
		l := *s.Limit
		out.Limit = &l
	}
	return &out
}

func copyItems[T any](items []*T) []*T {
	if items == nil {
		return nil
	}
	out := make([]*T, len(items))
	for i, item := range items {
		c := *item
		out[i] = &c
	}
	return out
}

func (s *Statement) String() string {
	var parts []string
	parts = append(parts, s.Kind.String())
	if len(s.Aggregations) > 0 {
		parts = append(parts, "aggregations "+join(s.Aggregations))
	}
	if len(s.GroupBy) > 0 {
		keys := make([]*OrderByItem, len(s.GroupBy))
		for i, g := range s.GroupBy {
			keys[i] = g.ToOrderBy()
		}
		parts = append(parts, "group by "+join(keys))
	}
	if len(s.OrderBy) > 0 {
		parts = append(parts, "order by "+join(s.OrderBy))
	}
	if s.Limit != nil {
		parts = append(parts, "limit "+s.Limit.String())
	}
	return strings.Join(parts, " ")
}

func join[T fmt.Stringer](items []T) string {
	s := make([]string, len(items))
	for i, item := range items {
		s[i] = item.String()
	}
	return strings.Join(s, ", ")
}
