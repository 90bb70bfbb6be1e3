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
	"fmt"
	"strings"
)

// Field describes a single column returned by a query.
type Field struct {
	// Name of the field as returned by the database: the column
	// label, which is the alias when the select expression has one.
	Name string `json:"name"`
	// Type of the column values.
	Type Type `json:"type"`
}

// Equal returns true if both fields carry the same name and type.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name && f.Type == other.Type
}

// Result represents a query result.
type Result struct {
	Fields []*Field `json:"fields"`
	Rows   []Row    `json:"rows"`
}

// Copy creates a deep copy of Result.
func (result *Result) Copy() *Result {
	out := &Result{}
	if result.Fields != nil {
		out.Fields = CopyFields(result.Fields)
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, CopyRow(r))
		}
	}
	return out
}

// CopyFields makes a copy of the fields.
func CopyFields(fields []*Field) []*Field {
	out := make([]*Field, len(fields))
	for i, f := range fields {
		fc := *f
		out[i] = &fc
	}
	return out
}

// CopyRow makes a copy of the row.
func CopyRow(r Row) Row {
	// The raw bytes of each value are shared: values are never mutated in place.
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Truncate returns a new Result with all the rows truncated
// to the specified number of columns.
func (result *Result) Truncate(l int) *Result {
	if l == 0 {
		return result
	}

	out := &Result{}
	if result.Fields != nil {
		out.Fields = result.Fields[:l]
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, r[:l])
		}
	}
	return out
}

// Equal compares the Result with another one.
func (result *Result) Equal(other *Result) bool {
	// Check for nil cases
	if result == nil {
		return other == nil
	}
	if other == nil {
		return false
	}

	// Compare Fields, RowsAffected, InsertID, Rows.
	return FieldsEqual(result.Fields, other.Fields) && RowsEqual(result.Rows, other.Rows)
}

// FieldsEqual compares two arrays of fields.
// reflect.DeepEqual shouldn't be used because of the protos.
func FieldsEqual(f1, f2 []*Field) bool {
	if len(f1) != len(f2) {
		return false
	}
	for i, f := range f1 {
		if !f.Equal(f2[i]) {
			return false
		}
	}
	return true
}

// RowsEqual compares two arrays of rows.
func RowsEqual(r1, r2 []Row) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, r := range r1 {
		if !RowEqual(r, r2[i]) {
			return false
		}
	}
	return true
}

// RowEqual compares two rows value by value.
func RowEqual(r1, r2 Row) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, v := range r1 {
		if !v.Equal(r2[i]) {
			return false
		}
	}
	return true
}

// AppendResult will combine the Results Objects of one result
// to another result. Note currently it doesn't handle cases like
// if two results have different fields. We will enhance this function.
func (result *Result) AppendResult(src *Result) {
	if result.Fields == nil {
		result.Fields = src.Fields
	}
	result.Rows = append(result.Rows, src.Rows...)
}

// String renders the fields and rows on a single line, mostly to make
// test failures readable.
func (result *Result) String() string {
	if result == nil {
		return "<nil>"
	}
	b := new(strings.Builder)
	b.WriteString("[fields:")
	for _, f := range result.Fields {
		fmt.Fprintf(b, " %s:%v", f.Name, f.Type)
	}
	b.WriteString("] [rows:")
	for _, r := range result.Rows {
		fmt.Fprintf(b, " %v", r)
	}
	b.WriteString("]")
	return b.String()
}
