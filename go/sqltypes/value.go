/*
Copyright 2019 The Vitess Authors.

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

// Package sqltypes implements interfaces and types that represent SQL values.
package sqltypes

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// NULL represents the NULL value.
var NULL = Value{}

// Value can store any SQL value. If the value represents
// an integral type, the bytes are always stored as a canonical
// representation that matches how MySQL returns such values.
type Value struct {
	typ Type
	val []byte
}

// Row is a single row of a result set, indexed by column position.
type Row = []Value

// NewValue builds a Value using typ and val. If the value and typ
// don't match, it returns an error.
func NewValue(typ Type, val []byte) (v Value, err error) {
	switch {
	case typ == Null:
		return NULL, nil
	case IsSigned(typ):
		if _, err := strconv.ParseInt(string(val), 10, 64); err != nil {
			return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return MakeTrusted(typ, val), nil
	case IsUnsigned(typ):
		if _, err := strconv.ParseUint(string(val), 10, 64); err != nil {
			return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return MakeTrusted(typ, val), nil
	case IsFloat(typ):
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return MakeTrusted(typ, val), nil
	case typ == Decimal:
		if _, err := decimal.NewFromString(string(val)); err != nil {
			return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid decimal %q: %v", val, err)
		}
		return MakeTrusted(typ, val), nil
	case IsQuoted(typ):
		return MakeTrusted(typ, val), nil
	}
	// All other types are unsafe or invalid.
	return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid type specified for MakeValue: %v", typ)
}

// MakeTrusted makes a new Value based on the type.
// This function should only be used if you know the value
// and type conform to the rules. Every place this function is
// called, a comment is needed that explains why it's justified.
// Exceptions: The current package and mysql package do not need
// comments. Other packages can also use the function to create
// VarBinary or VarChar values.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewInt32 builds an Int32 Value.
func NewInt32(v int32) Value {
	return MakeTrusted(Int32, strconv.AppendInt(nil, int64(v), 10))
}

// NewUint64 builds an Uint64 Value.
func NewUint64(v uint64) Value {
	return MakeTrusted(Uint64, strconv.AppendUint(nil, v, 10))
}

// NewFloat64 builds an Float64 Value.
func NewFloat64(v float64) Value {
	return MakeTrusted(Float64, strconv.AppendFloat(nil, v, 'g', -1, 64))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewVarBinary builds a VarBinary Value.
// The input is a string because it's the most common use case.
func NewVarBinary(v string) Value {
	return MakeTrusted(VarBinary, []byte(v))
}

// NewDecimal builds a Decimal Value from its canonical text form.
func NewDecimal(v string) Value {
	return MakeTrusted(Decimal, []byte(v))
}

// NewDecimalFromDecimal builds a Decimal Value rendered with a fixed scale.
func NewDecimalFromDecimal(d decimal.Decimal, scale int32) Value {
	return MakeTrusted(Decimal, []byte(d.StringFixed(scale)))
}

// InterfaceToValue builds a value from a go type.
// Supported types are nil, int64, uint64, float64,
// string and []byte.
// This function is deprecated. Use the type-specific
// functions instead.
func InterfaceToValue(goval any) (Value, error) {
	switch goval := goval.(type) {
	case nil:
		return NULL, nil
	case []byte:
		return MakeTrusted(VarBinary, goval), nil
	case int64:
		return NewInt64(goval), nil
	case int:
		return NewInt64(int64(goval)), nil
	case int32:
		return NewInt32(goval), nil
	case uint64:
		return NewUint64(goval), nil
	case float64:
		return NewFloat64(goval), nil
	case bool:
		if goval {
			return NewInt64(1), nil
		}
		return NewInt64(0), nil
	case string:
		return NewVarChar(goval), nil
	case decimal.Decimal:
		return NewDecimal(goval.String()), nil
	case Value:
		return goval, nil
	default:
		return NULL, vterrors.Errorf(vtrpc.CodeInvalidArgument, "unexpected type %T: %v", goval, goval)
	}
}

// Type returns the type of Value.
func (v Value) Type() Type {
	return v.typ
}

// Raw returns the internal representation of the value. For newer types,
// this may not match MySQL's representation.
func (v Value) Raw() []byte {
	return v.val
}

// ToBytes returns the value as MySQL would return it as []byte.
// In contrast, Raw returns the internal representation of the Value, which may not
// match MySQL's representation for newer types.
func (v Value) ToBytes() ([]byte, error) {
	return v.val, nil
}

// Len returns the length.
func (v Value) Len() int {
	return len(v.val)
}

// ToString returns the value as MySQL would return it as string.
func (v Value) ToString() string {
	return string(v.val)
}

// String returns a printable version of the value.
func (v Value) String() string {
	if v.typ == Null {
		return "NULL"
	}
	if v.IsQuoted() || v.typ == Decimal {
		return fmt.Sprintf("%v(%q)", v.typ, v.val)
	}
	return fmt.Sprintf("%v(%s)", v.typ, v.val)
}

// ToInt64 returns the value as MySQL would return it as a int64.
func (v Value) ToInt64() (int64, error) {
	if !v.IsIntegral() {
		return 0, vterrors.Errorf(vtrpc.CodeInvalidArgument, "value is not integral: %v", v)
	}
	return strconv.ParseInt(v.ToString(), 10, 64)
}

// ToUint64 returns the value as MySQL would return it as a uint64.
func (v Value) ToUint64() (uint64, error) {
	if !v.IsIntegral() {
		return 0, vterrors.Errorf(vtrpc.CodeInvalidArgument, "value is not integral: %v", v)
	}
	return strconv.ParseUint(v.ToString(), 10, 64)
}

// ToFloat64 returns the value as MySQL would return it as a float64.
func (v Value) ToFloat64() (float64, error) {
	if !IsNumber(v.typ) {
		return 0, vterrors.Errorf(vtrpc.CodeInvalidArgument, "value is not numeric: %v", v)
	}
	return strconv.ParseFloat(v.ToString(), 64)
}

// ToNative converts Value to a native go type.
// Decimal is returned as []byte.
func (v Value) ToNative() any {
	var out any
	var err error
	switch {
	case v.typ == Null:
		// no-op
	case v.IsSigned():
		out, err = v.ToInt64()
	case v.IsUnsigned():
		out, err = v.ToUint64()
	case v.IsFloat():
		out, err = v.ToFloat64()
	default:
		out = v.val
	}
	if err != nil {
		return v.val
	}
	return out
}

// IsNull returns true if Value is null.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool {
	return IsIntegral(v.typ)
}

// IsSigned returns true if Value is a signed integral.
func (v Value) IsSigned() bool {
	return IsSigned(v.typ)
}

// IsUnsigned returns true if Value is an unsigned integral.
func (v Value) IsUnsigned() bool {
	return IsUnsigned(v.typ)
}

// IsFloat returns true if Value is a float.
func (v Value) IsFloat() bool {
	return IsFloat(v.typ)
}

// IsDecimal returns true if Value is a decimal.
func (v Value) IsDecimal() bool {
	return v.typ == Decimal
}

// IsQuoted returns true if Value must be SQL-quoted.
func (v Value) IsQuoted() bool {
	return IsQuoted(v.typ)
}

// IsText returns true if Value is a collatable text.
func (v Value) IsText() bool {
	return IsText(v.typ)
}

// IsBinary returns true if Value is binary.
func (v Value) IsBinary() bool {
	return IsBinary(v.typ)
}

// Equal compares this Value to other. It ignores any flags.
func (v Value) Equal(other Value) bool {
	return v.typ == other.typ && string(v.val) == string(other.val)
}

// MarshalJSON should only be used for testing.
// It's not a complete implementation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsQuoted():
		return json.Marshal(v.ToString())
	case v.typ == Null:
		return []byte("null"), nil
	}
	return v.val, nil
}
