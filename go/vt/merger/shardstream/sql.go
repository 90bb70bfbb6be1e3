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

package shardstream

import (
	"context"
	"database/sql"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/vterrors"
)

var _ Stream = (*SQLStream)(nil)

// SQLStream streams the rows of a database/sql query.
type SQLStream struct {
	shard  string
	rows   *sql.Rows
	fields []*sqltypes.Field

	// dest is reused by every Scan.
	dest []any

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Query runs query on db and returns its rows as a Stream.
func Query(ctx context.Context, shard string, db *sql.DB, query string, args ...any) (*SQLStream, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, vterrors.Wrapf(err, "query on shard %s", shard)
	}
	s, err := NewSQLStream(shard, rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStream returns a Stream over rows. Column types are taken from the
// driver's database type names. Columns the driver cannot type, like
// expressions in sqlite, are reported as sqltypes.Null and their values
// keep the type the driver scanned them with.
func NewSQLStream(shard string, rows *sql.Rows) (*SQLStream, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, vterrors.Wrapf(err, "column types on shard %s", shard)
	}
	s := &SQLStream{
		shard:  shard,
		rows:   rows,
		fields: make([]*sqltypes.Field, len(cols)),
		dest:   make([]any, len(cols)),
	}
	for i, col := range cols {
		s.fields[i] = &sqltypes.Field{
			Name: col.Name(),
			Type: TypeForDatabaseType(col.DatabaseTypeName()),
		}
		s.dest[i] = new(any)
	}
	return s, nil
}

// Shard implements Stream.
func (s *SQLStream) Shard() string {
	return s.shard
}

// Fields implements Stream.
func (s *SQLStream) Fields() []*sqltypes.Field {
	return s.fields
}

// Next implements Stream.
func (s *SQLStream) Next(ctx context.Context) (sqltypes.Row, error) {
	if s.closed.Load() {
		return nil, errClosed(s.shard)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	if err := s.rows.Scan(s.dest...); err != nil {
		return nil, err
	}
	row := make(sqltypes.Row, len(s.dest))
	for i, d := range s.dest {
		v, err := s.toValue(i, *(d.(*any)))
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// Close implements Stream.
func (s *SQLStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.rows.Close()
	})
	return s.closeErr
}

// toValue converts a scanned driver value to the type of column i. When
// the conversion is not possible the driver's own type is kept.
func (s *SQLStream) toValue(i int, goval any) (sqltypes.Value, error) {
	typ := s.fields[i].Type
	if t, ok := goval.(time.Time); ok {
		goval = formatTime(t, typ)
	}
	v, err := sqltypes.InterfaceToValue(goval)
	if err != nil || v.IsNull() || typ == sqltypes.Null || v.Type() == typ {
		return v, err
	}
	raw := v.Raw()
	if v.IsFloat() && !sqltypes.IsFloat(typ) {
		raw = strconv.AppendFloat(nil, mustFloat(v), 'f', -1, 64)
	}
	converted, err := sqltypes.NewValue(typ, raw)
	if err != nil {
		log.V(2).Infof("shard %s: keeping %v for column %s of type %v: %v", s.shard, v, s.fields[i].Name, typ, err)
		return v, nil
	}
	return converted, nil
}

func mustFloat(v sqltypes.Value) float64 {
	f, _ := v.ToFloat64()
	return f
}

func formatTime(t time.Time, typ sqltypes.Type) string {
	switch typ {
	case sqltypes.Date:
		return t.Format(time.DateOnly)
	case sqltypes.Time:
		return t.Format("15:04:05.999999")
	}
	return t.Format("2006-01-02 15:04:05.999999")
}

// TypeForDatabaseType maps a driver database type name, as returned by
// sql.ColumnType.DatabaseTypeName, to a sqltypes.Type. Unknown names map to
// sqltypes.Null.
func TypeForDatabaseType(name string) sqltypes.Type {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	unsigned := false
	if rest, ok := strings.CutPrefix(name, "UNSIGNED "); ok {
		name, unsigned = rest, true
	}
	if rest, ok := strings.CutSuffix(name, " UNSIGNED"); ok {
		name, unsigned = rest, true
	}
	typ, ok := databaseTypes[name]
	if !ok {
		return sqltypes.Null
	}
	if unsigned {
		if u, ok := unsignedTypes[typ]; ok {
			return u
		}
	}
	return typ
}

var databaseTypes = map[string]sqltypes.Type{
	"TINYINT":    sqltypes.Int8,
	"SMALLINT":   sqltypes.Int16,
	"MEDIUMINT":  sqltypes.Int24,
	"INT":        sqltypes.Int32,
	"INTEGER":    sqltypes.Int64,
	"BIGINT":     sqltypes.Int64,
	"FLOAT":      sqltypes.Float32,
	"DOUBLE":     sqltypes.Float64,
	"REAL":       sqltypes.Float64,
	"DECIMAL":    sqltypes.Decimal,
	"NUMERIC":    sqltypes.Decimal,
	"DATE":       sqltypes.Date,
	"TIME":       sqltypes.Time,
	"DATETIME":   sqltypes.Datetime,
	"TIMESTAMP":  sqltypes.Timestamp,
	"YEAR":       sqltypes.Year,
	"CHAR":       sqltypes.Char,
	"VARCHAR":    sqltypes.VarChar,
	"TEXT":       sqltypes.Text,
	"TINYTEXT":   sqltypes.Text,
	"MEDIUMTEXT": sqltypes.Text,
	"LONGTEXT":   sqltypes.Text,
	"BINARY":     sqltypes.Binary,
	"VARBINARY":  sqltypes.VarBinary,
	"BLOB":       sqltypes.Blob,
	"TINYBLOB":   sqltypes.Blob,
	"MEDIUMBLOB": sqltypes.Blob,
	"LONGBLOB":   sqltypes.Blob,
	"BIT":        sqltypes.Bit,
	"ENUM":       sqltypes.Enum,
	"SET":        sqltypes.Set,
	"JSON":       sqltypes.TypeJSON,
}

var unsignedTypes = map[sqltypes.Type]sqltypes.Type{
	sqltypes.Int8:  sqltypes.Uint8,
	sqltypes.Int16: sqltypes.Uint16,
	sqltypes.Int24: sqltypes.Uint24,
	sqltypes.Int32: sqltypes.Uint32,
	sqltypes.Int64: sqltypes.Uint64,
}
