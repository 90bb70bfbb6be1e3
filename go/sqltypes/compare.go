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
	"bytes"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// NullsafeCompare returns 0 if v1==v2, -1 if v1<v2, and 1 if v1>v2.
// NULL is the lowest value. If any value is
// numeric, then a numeric comparison is performed after
// necessary conversions. If none are numeric, then it's
// a simple binary comparison. Uncomparable values return an error.
func NullsafeCompare(v1, v2 Value) (int, error) {
	// Based on the categorization defined for the types,
	// we're going to allow comparison of the following:
	// Null, isNumber, isByteComparable.
	// For all other types, we're going to return an error.
	switch {
	case v1.IsNull() && v2.IsNull():
		return 0, nil
	case v2.IsNull():
		return 1, nil
	case v1.IsNull():
		return -1, nil
	case isByteComparable(v1) && isByteComparable(v2):
		return bytes.Compare(v1.Raw(), v2.Raw()), nil
	case IsNumber(v1.Type()), IsNumber(v2.Type()):
		return compareNumbers(v1, v2)
	}
	return 0, vterrors.Errorf(vtrpc.CodeUnimplemented, "types are not comparable: %v vs %v", v1.Type(), v2.Type())
}

// isByteComparable returns true if the values can be compared
// as raw bytes: text, binary and the temporal types whose canonical
// string forms sort chronologically.
func isByteComparable(v Value) bool {
	return v.IsQuoted()
}

func compareNumbers(v1, v2 Value) (int, error) {
	lv1, err := newNumeric(v1)
	if err != nil {
		return 0, err
	}
	lv2, err := newNumeric(v2)
	if err != nil {
		return 0, err
	}
	return compareNumeric(lv1, lv2), nil
}

// compareNumeric returns an integer comparing two numerics.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func compareNumeric(v1, v2 numeric) int {
	// Equalize the types.
	switch v1.typ {
	case Int64:
		switch v2.typ {
		case Uint64:
			if v1.ival < 0 {
				return -1
			}
			v1 = numeric{typ: Uint64, uval: uint64(v1.ival)}
		case Float64:
			v1 = numeric{typ: Float64, fval: float64(v1.ival)}
		case Decimal:
			v1 = numeric{typ: Decimal, dval: v1.toDecimal()}
		}
	case Uint64:
		switch v2.typ {
		case Int64:
			if v2.ival < 0 {
				return 1
			}
			v2 = numeric{typ: Uint64, uval: uint64(v2.ival)}
		case Float64:
			v1 = numeric{typ: Float64, fval: float64(v1.uval)}
		case Decimal:
			v1 = numeric{typ: Decimal, dval: v1.toDecimal()}
		}
	case Float64:
		if v2.typ != Float64 {
			v2 = numeric{typ: Float64, fval: v2.toFloat()}
		}
	case Decimal:
		switch v2.typ {
		case Float64:
			v1 = numeric{typ: Float64, fval: v1.toFloat()}
		case Int64, Uint64:
			v2 = numeric{typ: Decimal, dval: v2.toDecimal()}
		}
	}

	// Both values are of the same type.
	switch v1.typ {
	case Int64:
		switch {
		case v1.ival == v2.ival:
			return 0
		case v1.ival < v2.ival:
			return -1
		}
	case Uint64:
		switch {
		case v1.uval == v2.uval:
			return 0
		case v1.uval < v2.uval:
			return -1
		}
	case Float64:
		switch {
		case v1.fval == v2.fval:
			return 0
		case v1.fval < v2.fval:
			return -1
		}
	case Decimal:
		return v1.dval.Cmp(v2.dval)
	}

	// v1>v2
	return 1
}
