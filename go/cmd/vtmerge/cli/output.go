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

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"shardmerge.io/shardmerge/go/sqltypes"
)

const (
	jsonIndent = "  "
	jsonPrefix = ""
)

// MarshalJSON marshals obj to a JSON string indented with two spaces for
// readability.
func MarshalJSON(obj any) ([]byte, error) {
	data, err := json.MarshalIndent(obj, jsonPrefix, jsonIndent)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal = %v", err)
	}
	return data, nil
}

// MergedResult is the JSON form of a merged result.
type MergedResult struct {
	ExecutionID string            `json:"execution_id"`
	Mode        string            `json:"mode"`
	Fields      []*sqltypes.Field `json:"fields"`
	Rows        []sqltypes.Row    `json:"rows"`
}

// WriteResultTable writes qr as a table, NULLs included, followed by a
// row count.
func WriteResultTable(w io.Writer, qr *sqltypes.Result) error {
	table := tablewriter.NewWriter(w)

	header := make([]any, 0, len(qr.Fields))
	for _, field := range qr.Fields {
		header = append(header, field.Name)
	}
	table.Header(header...)

	rows := make([][]string, 0, len(qr.Rows))
	for _, row := range qr.Rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			if v.IsNull() {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, v.ToString())
		}
		rows = append(rows, cells)
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, RowCount(len(qr.Rows)))
	return err
}

// RowCount renders n like "1,024 rows in set".
func RowCount(n int) string {
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	return fmt.Sprintf("%s %s in set", humanize.Comma(int64(n)), noun)
}
