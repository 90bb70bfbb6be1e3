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

// Functions in this file should only be used for testing.
// This is an experiment to see if test code bloat can be
// reduced and readability improved.

// MakeTestFields builds a []*Field for testing.
//
//	fields := sqltypes.MakeTestFields(
//	  "a|b",
//	  "int64|varchar",
//	)
//
// The field types are the names printed by Type.String and are case
// insensitive. Column delimiters must be used only to separate
// strings and not at the beginning or the end.
func MakeTestFields(names, types string) []*Field {
	n := split(names)
	t := split(types)
	var fields []*Field
	for i := range n {
		typ, err := ParseType(t[i])
		if err != nil {
			panic(err)
		}
		fields = append(fields, &Field{
			Name: n[i],
			Type: typ,
		})
	}
	return fields
}

// MakeTestResult builds a *sqltypes.Result object for testing.
//
//	result := sqltypes.MakeTestResult(
//	  fields,
//	  " 1|a",
//	  "10|abcd",
//	)
//
// The field type values are set as the types for the rows built.
// Spaces are trimmed from row values. "null" is treated as NULL.
func MakeTestResult(fields []*Field, rows ...string) *Result {
	result := &Result{
		Fields: fields,
	}
	if len(rows) > 0 {
		result.Rows = make([]Row, len(rows))
	}
	for i, row := range rows {
		result.Rows[i] = make(Row, len(fields))
		for j, col := range split(row) {
			if col == "null" {
				result.Rows[i][j] = NULL
				continue
			}
			result.Rows[i][j] = MakeTrusted(fields[j].Type, []byte(col))
		}
	}
	return result
}

// TestValue builds a Value from typ and val.
// This function should only be used for testing.
func TestValue(typ Type, val string) Value {
	return MakeTrusted(typ, []byte(val))
}

// PrintResults prints []*Results into a string.
// This function should only be used for testing.
func PrintResults(results []*Result) string {
	b := new(strings.Builder)
	for i, r := range results {
		if i == 0 {
			fmt.Fprintf(b, "%v", r)
			continue
		}
		fmt.Fprintf(b, ", %v", r)
	}
	return b.String()
}

func split(str string) []string {
	splits := strings.Split(str, "|")
	for i, v := range splits {
		splits[i] = strings.TrimSpace(v)
	}
	return splits
}
