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

package sqltypes

import (
	"strconv"

	"github.com/shopspring/decimal"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// numeric represents a numeric value extracted from
// a Value, used for arithmetic operations. Only one of
// the value fields is set, as selected by typ.
type numeric struct {
	typ  Type
	ival int64
	uval uint64
	fval float64
	dval decimal.Decimal
}

// Add adds two values together. If either v1 or v2 is null,
// the result is null.
func Add(v1, v2 Value) (Value, error) {
	if v1.IsNull() || v2.IsNull() {
		return NULL, nil
	}
	lv1, err := newNumeric(v1)
	if err != nil {
		return NULL, err
	}
	lv2, err := newNumeric(v2)
	if err != nil {
		return NULL, err
	}
	lresult, err := addNumeric(lv1, lv2)
	if err != nil {
		return NULL, err
	}
	return castFromNumeric(lresult, lresult.typ), nil
}

// NullSafeAdd adds two Values in a null-safe manner. A null value
// is treated as 0. If both values are null, then a null is returned.
// If both values are not null, a numeric value is built
// from each input: Signed->int64, Unsigned->uint64, Float->float64,
// Decimal->decimal. Otherwise the 'best type fit' is chosen for the
// number: int64 or float64. Addition is performed by upgrading types
// as needed, or in case of overflow: int64->uint64 only when the
// result stays non negative. The result is cast to the requested
// resultType.
func NullSafeAdd(v1, v2 Value, resultType Type) (Value, error) {
	if v1.IsNull() {
		if v2.IsNull() {
			return NULL, nil
		}
		v1, v2 = v2, v1
	}
	lv1, err := newNumeric(v1)
	if err != nil {
		return NULL, err
	}
	if v2.IsNull() {
		return castFromNumeric(lv1, resultType), nil
	}
	lv2, err := newNumeric(v2)
	if err != nil {
		return NULL, err
	}
	lresult, err := addNumeric(lv1, lv2)
	if err != nil {
		return NULL, err
	}
	return castFromNumeric(lresult, resultType), nil
}

// Divide divides v1 by v2. If either value is null, or v2 is zero,
// the result is null. Float inputs produce a Float64; every other
// combination produces a Decimal whose scale is the scale of v1
// widened by scaleIncrement, the way MySQL computes div_precision.
func Divide(v1, v2 Value, scaleIncrement int32) (Value, error) {
	if v1.IsNull() || v2.IsNull() {
		return NULL, nil
	}
	lv1, err := newNumeric(v1)
	if err != nil {
		return NULL, err
	}
	lv2, err := newNumeric(v2)
	if err != nil {
		return NULL, err
	}
	if lv1.typ == Float64 || lv2.typ == Float64 {
		divisor := lv2.toFloat()
		if divisor == 0 {
			return NULL, nil
		}
		return NewFloat64(lv1.toFloat() / divisor), nil
	}
	dividend, divisor := lv1.toDecimal(), lv2.toDecimal()
	if divisor.IsZero() {
		return NULL, nil
	}
	scale := decimalScale(dividend) + scaleIncrement
	return NewDecimalFromDecimal(dividend.DivRound(divisor, scale), scale), nil
}

// newNumeric parses a value into a numeric. Values whose type
// is not a number are parsed as an integer first, then as a float.
func newNumeric(v Value) (numeric, error) {
	str := v.ToString()
	switch {
	case v.IsSigned():
		ival, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return numeric{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return numeric{typ: Int64, ival: ival}, nil
	case v.IsUnsigned():
		uval, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return numeric{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return numeric{typ: Uint64, uval: uval}, nil
	case v.IsFloat():
		fval, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return numeric{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return numeric{typ: Float64, fval: fval}, nil
	case v.IsDecimal():
		dval, err := decimal.NewFromString(str)
		if err != nil {
			return numeric{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "%v", err)
		}
		return numeric{typ: Decimal, dval: dval}, nil
	}

	// For other types, do best effort.
	if ival, err := strconv.ParseInt(str, 10, 64); err == nil {
		return numeric{typ: Int64, ival: ival}, nil
	}
	if fval, err := strconv.ParseFloat(str, 64); err == nil {
		return numeric{typ: Float64, fval: fval}, nil
	}
	return numeric{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "could not parse value: '%s'", str)
}

func addNumeric(v1, v2 numeric) (numeric, error) {
	v1, v2 = prioritize(v1, v2)
	switch v1.typ {
	case Int64:
		return intPlusInt(v1.ival, v2.ival)
	case Uint64:
		switch v2.typ {
		case Int64:
			return uintPlusInt(v1.uval, v2.ival)
		case Uint64:
			return uintPlusUint(v1.uval, v2.uval)
		}
	case Decimal:
		return numeric{typ: Decimal, dval: v1.dval.Add(v2.toDecimal())}, nil
	case Float64:
		return numeric{typ: Float64, fval: v1.fval + v2.toFloat()}, nil
	}
	panic("unreachable")
}

// prioritize reorders the input parameters
// to be Float64, Decimal, Uint64, Int64.
func prioritize(v1, v2 numeric) (altv1, altv2 numeric) {
	switch v1.typ {
	case Int64:
		if v2.typ == Uint64 || v2.typ == Decimal || v2.typ == Float64 {
			return v2, v1
		}
	case Uint64:
		if v2.typ == Decimal || v2.typ == Float64 {
			return v2, v1
		}
	case Decimal:
		if v2.typ == Float64 {
			return v2, v1
		}
	}
	return v1, v2
}

func intPlusInt(v1, v2 int64) (numeric, error) {
	result := v1 + v2
	if (result > v1) != (v2 > 0) {
		return numeric{}, vterrors.NewErrorf(vtrpc.CodeInvalidArgument, vterrors.DataOutOfRange, "BIGINT value is out of range in %v + %v", v1, v2)
	}
	return numeric{typ: Int64, ival: result}, nil
}

func uintPlusInt(v1 uint64, v2 int64) (numeric, error) {
	if v2 >= 0 {
		return uintPlusUint(v1, uint64(v2))
	}
	neg := uint64(-v2)
	if neg > v1 {
		// v1 < neg <= 2^63, so the signed result cannot overflow.
		return numeric{typ: Int64, ival: -int64(neg - v1)}, nil
	}
	return numeric{typ: Uint64, uval: v1 - neg}, nil
}

func uintPlusUint(v1, v2 uint64) (numeric, error) {
	result := v1 + v2
	if result < v2 {
		return numeric{}, vterrors.NewErrorf(vtrpc.CodeInvalidArgument, vterrors.DataOutOfRange, "BIGINT UNSIGNED value is out of range in %v + %v", v1, v2)
	}
	return numeric{typ: Uint64, uval: result}, nil
}

func (n numeric) toFloat() float64 {
	switch n.typ {
	case Int64:
		return float64(n.ival)
	case Uint64:
		return float64(n.uval)
	case Decimal:
		f, _ := n.dval.Float64()
		return f
	}
	return n.fval
}

func (n numeric) toDecimal() decimal.Decimal {
	switch n.typ {
	case Int64:
		return decimal.NewFromInt(n.ival)
	case Uint64:
		return decimal.NewFromUint64(n.uval)
	case Float64:
		return decimal.NewFromFloat(n.fval)
	}
	return n.dval
}

func (n numeric) toInt64() int64 {
	switch n.typ {
	case Uint64:
		return int64(n.uval)
	case Float64:
		return int64(n.fval)
	case Decimal:
		return n.dval.IntPart()
	}
	return n.ival
}

func (n numeric) toUint64() uint64 {
	switch n.typ {
	case Int64:
		return uint64(n.ival)
	case Float64:
		return uint64(n.fval)
	case Decimal:
		return uint64(n.dval.IntPart())
	}
	return n.uval
}

// decimalScale returns the number of digits after the decimal point.
func decimalScale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func castFromNumeric(v numeric, resultType Type) Value {
	switch {
	case IsSigned(resultType):
		return MakeTrusted(resultType, strconv.AppendInt(nil, v.toInt64(), 10))
	case IsUnsigned(resultType):
		return MakeTrusted(resultType, strconv.AppendUint(nil, v.toUint64(), 10))
	case IsFloat(resultType):
		return MakeTrusted(resultType, strconv.AppendFloat(nil, v.toFloat(), 'g', -1, 64))
	case resultType == Decimal:
		d := v.toDecimal()
		return NewDecimalFromDecimal(d, decimalScale(d))
	}
	// Non numeric result types keep the textual rendering of the number.
	switch v.typ {
	case Int64:
		return MakeTrusted(resultType, strconv.AppendInt(nil, v.ival, 10))
	case Uint64:
		return MakeTrusted(resultType, strconv.AppendUint(nil, v.uval, 10))
	case Float64:
		return MakeTrusted(resultType, strconv.AppendFloat(nil, v.fval, 'g', -1, 64))
	}
	d := v.toDecimal()
	return MakeTrusted(resultType, []byte(d.StringFixed(decimalScale(d))))
}
