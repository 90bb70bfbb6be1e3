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

// Package opcode holds the closed sets of variants the merger works with:
// aggregation kinds, sort directions and statement kinds.
package opcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
)

// AggregateOpcode is the aggregation Opcode.
type AggregateOpcode int

// These constants list the possible aggregate opcodes.
const (
	AggregateUnassigned = AggregateOpcode(iota)
	AggregateCount
	AggregateSum
	AggregateMax
	AggregateMin
	AggregateAvg
	_NumOfOpCodes // This line must be last of the opcodes!
)

// AggregateName contains the names of the aggregate opcodes.
var AggregateName = map[AggregateOpcode]string{
	AggregateCount: "count",
	AggregateSum:   "sum",
	AggregateMax:   "max",
	AggregateMin:   "min",
	AggregateAvg:   "avg",
}

// SupportedAggregates maps the lower case function name to its opcode.
var SupportedAggregates = map[string]AggregateOpcode{
	"count": AggregateCount,
	"sum":   AggregateSum,
	"max":   AggregateMax,
	"min":   AggregateMin,
	"avg":   AggregateAvg,
}

func (code AggregateOpcode) String() string {
	name := AggregateName[code]
	if name == "" {
		name = "ERROR"
	}
	return name
}

// MarshalJSON serializes the AggregateOpcode as a JSON string.
// It's used for testing and diagnostics.
func (code AggregateOpcode) MarshalJSON() ([]byte, error) {
	return json.Marshal(code.String())
}

// UnmarshalJSON reads an aggregate function name, in any case.
func (code *AggregateOpcode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAggregate(s)
	if err != nil {
		return err
	}
	*code = parsed
	return nil
}

// ParseAggregate returns the opcode of the named aggregate function.
func ParseAggregate(name string) (AggregateOpcode, error) {
	code, ok := SupportedAggregates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AggregateUnassigned, fmt.Errorf("unsupported aggregate function %q", name)
	}
	return code, nil
}

// SQLType returns the type a merged aggregate of this kind produces from
// shard values of type typ. Null means the type is only known once values
// are seen.
func (code AggregateOpcode) SQLType(typ sqltypes.Type) sqltypes.Type {
	switch code {
	case AggregateUnassigned:
		return sqltypes.Null
	case AggregateCount:
		return sqltypes.Int64
	case AggregateMax, AggregateMin:
		return typ
	case AggregateSum:
		switch {
		case sqltypes.IsFloat(typ):
			return sqltypes.Float64
		case sqltypes.IsUnsigned(typ):
			return sqltypes.Uint64
		case sqltypes.IsSigned(typ):
			return sqltypes.Int64
		case typ == sqltypes.Decimal:
			return sqltypes.Decimal
		}
		return sqltypes.Null
	case AggregateAvg:
		if sqltypes.IsFloat(typ) {
			return sqltypes.Float64
		}
		return sqltypes.Decimal
	default:
		panic(code.String()) // we have a unit test checking we never reach here
	}
}

// NeedsDerivedColumns returns true for aggregates that can only be merged
// from helper columns the shards compute alongside them.
func (code AggregateOpcode) NeedsDerivedColumns() bool {
	return code == AggregateAvg
}

// NeedsComparableValues returns true for aggregates which need to compare values.
func (code AggregateOpcode) NeedsComparableValues() bool {
	return code == AggregateMax || code == AggregateMin
}

// Direction is the sort direction of an ORDER BY or GROUP BY item.
type Direction int

const (
	// Ascending is the default direction.
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// IsDesc returns true for Descending.
func (d Direction) IsDesc() bool {
	return d == Descending
}

// ParseDirection reads ASC or DESC, in any case. An empty string is Ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Ascending, nil
	case "DESC":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("invalid sort direction %q", s)
}

// MarshalJSON serializes the Direction as a JSON string.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a Direction from a JSON string.
func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StatementKind is the kind of the statement whose shard results are merged.
type StatementKind int

const (
	StatementSelect StatementKind = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

var statementNames = map[StatementKind]string{
	StatementSelect: "SELECT",
	StatementInsert: "INSERT",
	StatementUpdate: "UPDATE",
	StatementDelete: "DELETE",
}

func (k StatementKind) String() string {
	if name, ok := statementNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// ParseStatementKind reads a statement kind, in any case. An empty string
// is StatementSelect.
func ParseStatementKind(s string) (StatementKind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return StatementSelect, nil
	}
	for k, name := range statementNames {
		if name == s {
			return k, nil
		}
	}
	return StatementSelect, fmt.Errorf("unknown statement kind %q", s)
}

// MarshalJSON serializes the StatementKind as a JSON string.
func (k StatementKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON reads a StatementKind from a JSON string.
func (k *StatementKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseStatementKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
