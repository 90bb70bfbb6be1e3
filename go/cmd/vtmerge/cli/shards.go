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
	"database/sql"
	"fmt"
	"slices"
	"strings"

	// database/sql drivers a shard can be opened with.
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// Drivers are the database/sql driver names a shard target may use.
var Drivers = []string{"mysql", "sqlite"}

// ShardTarget is a shard named on the command line as name=driver:dsn.
type ShardTarget struct {
	Name   string
	Driver string
	DSN    string
}

// String is the inverse of ParseShardTarget.
func (t ShardTarget) String() string {
	return fmt.Sprintf("%s=%s:%s", t.Name, t.Driver, t.DSN)
}

// Open opens the shard's database. The connection is established lazily by
// database/sql.
func (t ShardTarget) Open() (*sql.DB, error) {
	db, err := sql.Open(t.Driver, t.DSN)
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot open shard %s", t.Name)
	}
	return db, nil
}

// ParseShardTarget parses name=driver:dsn. Only the first '=' and the first
// ':' after it separate the parts, so the dsn may contain both.
func ParseShardTarget(s string) (ShardTarget, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return ShardTarget{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid shard %q: expected <name>=<driver>:<dsn>", s)
	}
	driver, dsn, ok := strings.Cut(rest, ":")
	if !ok || dsn == "" {
		return ShardTarget{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid shard %q: expected <name>=<driver>:<dsn>", s)
	}
	if !slices.Contains(Drivers, driver) {
		return ShardTarget{}, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid shard %q: unknown driver %q, expected one of %s", s, driver, strings.Join(Drivers, ", "))
	}
	return ShardTarget{Name: strings.TrimSpace(name), Driver: driver, DSN: dsn}, nil
}

// ParseShardTargets parses every target and rejects duplicate shard names.
func ParseShardTargets(specs []string) ([]ShardTarget, error) {
	targets := make([]ShardTarget, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		t, err := ParseShardTarget(s)
		if err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, vterrors.Errorf(vtrpc.CodeInvalidArgument, "shard %s given more than once", t.Name)
		}
		seen[t.Name] = true
		targets = append(targets, t)
	}
	return targets, nil
}
