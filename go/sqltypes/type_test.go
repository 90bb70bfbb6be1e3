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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeValues(t *testing.T) {
	testcases := []struct {
		defined  Type
		expected int
	}{{
		defined:  Null,
		expected: 0,
	}, {
		defined:  Int8,
		expected: 1 | flagIsIntegral,
	}, {
		defined:  Uint8,
		expected: 2 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Int16,
		expected: 3 | flagIsIntegral,
	}, {
		defined:  Uint16,
		expected: 4 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Int24,
		expected: 5 | flagIsIntegral,
	}, {
		defined:  Uint24,
		expected: 6 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Int32,
		expected: 7 | flagIsIntegral,
	}, {
		defined:  Uint32,
		expected: 8 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Int64,
		expected: 9 | flagIsIntegral,
	}, {
		defined:  Uint64,
		expected: 10 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Float32,
		expected: 11 | flagIsFloat,
	}, {
		defined:  Float64,
		expected: 12 | flagIsFloat,
	}, {
		defined:  Timestamp,
		expected: 13 | flagIsQuoted,
	}, {
		defined:  Date,
		expected: 14 | flagIsQuoted,
	}, {
		defined:  Time,
		expected: 15 | flagIsQuoted,
	}, {
		defined:  Datetime,
		expected: 16 | flagIsQuoted,
	}, {
		defined:  Year,
		expected: 17 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Decimal,
		expected: 18,
	}, {
		defined:  Text,
		expected: 19 | flagIsQuoted | flagIsText,
	}, {
		defined:  Blob,
		expected: 20 | flagIsQuoted | flagIsBinary,
	}, {
		defined:  VarChar,
		expected: 21 | flagIsQuoted | flagIsText,
	}, {
		defined:  VarBinary,
		expected: 22 | flagIsQuoted | flagIsBinary,
	}, {
		defined:  Char,
		expected: 23 | flagIsQuoted | flagIsText,
	}, {
		defined:  Binary,
		expected: 24 | flagIsQuoted | flagIsBinary,
	}, {
		defined:  Bit,
		expected: 25 | flagIsQuoted,
	}, {
		defined:  Enum,
		expected: 26 | flagIsQuoted,
	}, {
		defined:  Set,
		expected: 27 | flagIsQuoted,
	}, {
		defined:  TypeJSON,
		expected: 30 | flagIsQuoted,
	}}
	for _, tcase := range testcases {
		assert.Equalf(t, tcase.expected, int(tcase.defined), "Type %s", tcase.defined)
	}
}

func TestIsFunctions(t *testing.T) {
	assert.False(t, IsIntegral(Null))
	assert.True(t, IsIntegral(Int64))
	assert.False(t, IsSigned(Uint64))
	assert.True(t, IsSigned(Int64))
	assert.False(t, IsUnsigned(Int64))
	assert.True(t, IsUnsigned(Uint64))
	assert.False(t, IsFloat(Int64))
	assert.True(t, IsFloat(Float64))
	assert.False(t, IsQuoted(Int64))
	assert.True(t, IsQuoted(Binary))
	assert.False(t, IsText(Int64))
	assert.True(t, IsText(Char))
	assert.False(t, IsBinary(Int64))
	assert.True(t, IsBinary(Binary))
	assert.True(t, IsNumber(Decimal))
	assert.False(t, IsNumber(VarChar))
	assert.True(t, IsTemporal(Datetime))
	assert.False(t, IsTemporal(Year))
}

func TestParseType(t *testing.T) {
	for typ, name := range typeNames {
		got, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := ParseType(" varbinary ")
	require.NoError(t, err)
	assert.Equal(t, VarBinary, got)

	got, err = ParseType("null")
	require.NoError(t, err)
	assert.Equal(t, Null, got)

	_, err = ParseType("tuple")
	assert.EqualError(t, err, `unknown type "tuple"`)

	assert.Equal(t, "Type(12345)", Type(12345).String())
}

func TestTypeText(t *testing.T) {
	text, err := Decimal.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DECIMAL", string(text))

	var typ Type
	require.NoError(t, typ.UnmarshalText([]byte("int64")))
	assert.Equal(t, Int64, typ)
	assert.Error(t, typ.UnmarshalText([]byte("nope")))
}
