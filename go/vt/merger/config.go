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

package merger

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"shardmerge.io/shardmerge/go/vt/utils"
)

// NullsOrder places NULL relative to every other value when sorting.
type NullsOrder int

const (
	// NullsLow sorts NULL before every value: first in ascending order,
	// last in descending order. This is what MySQL does.
	NullsLow NullsOrder = iota
	// NullsHigh sorts NULL after every value.
	NullsHigh
)

var _ pflag.Value = (*NullsOrder)(nil)

func (n NullsOrder) String() string {
	if n == NullsHigh {
		return "high"
	}
	return "low"
}

// Set implements pflag.Value.
func (n *NullsOrder) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		*n = NullsLow
	case "high":
		*n = NullsHigh
	default:
		return fmt.Errorf("invalid nulls order %q: expected low or high", s)
	}
	return nil
}

// Type implements pflag.Value.
func (n *NullsOrder) Type() string {
	return "string"
}

// Config holds the merge settings a binary can expose as flags.
type Config struct {
	// CaseSensitiveColumns matches column labels exactly. By default
	// labels match case-insensitively, like MySQL column names.
	CaseSensitiveColumns bool
	NullsOrder           NullsOrder
	// MaxMemoryRows bounds the rows a memory sort buffers. 0 is unbounded.
	MaxMemoryRows int
	// PrefetchRows is the per shard read-ahead of streaming merges. 0
	// disables read-ahead.
	PrefetchRows int
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{NullsOrder: NullsLow}
}

// RegisterFlags installs the merge flags on fs.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	utils.SetFlagBoolVar(fs, &c.CaseSensitiveColumns, "merge-case-sensitive-columns", c.CaseSensitiveColumns, "match ORDER BY, GROUP BY and aggregation labels against shard columns case-sensitively")
	utils.SetFlagVar(fs, &c.NullsOrder, "merge-nulls-order", "where NULL sorts: low (before every value) or high (after every value)")
	utils.SetFlagIntVar(fs, &c.MaxMemoryRows, "merge-max-memory-rows", c.MaxMemoryRows, "maximum number of rows an in-memory sort may buffer, 0 for no limit")
	utils.SetFlagIntVar(fs, &c.PrefetchRows, "merge-prefetch-rows", c.PrefetchRows, "rows read ahead per shard by streaming merges, 0 to disable")
}

// Options returns the merge options matching c.
func (c *Config) Options() []Option {
	return []Option{
		WithCaseSensitiveColumns(c.CaseSensitiveColumns),
		WithNullsOrder(c.NullsOrder),
		WithMaxMemoryRows(c.MaxMemoryRows),
		WithPrefetch(c.PrefetchRows),
	}
}

type options struct {
	caseSensitive bool
	nulls         NullsOrder
	maxMemoryRows int
	prefetch      int
}

// Option configures a merge.
type Option func(*options)

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCaseSensitiveColumns sets whether column labels match case-sensitively.
func WithCaseSensitiveColumns(caseSensitive bool) Option {
	return func(o *options) {
		o.caseSensitive = caseSensitive
	}
}

// WithNullsOrder sets where NULL sorts.
func WithNullsOrder(nulls NullsOrder) Option {
	return func(o *options) {
		o.nulls = nulls
	}
}

// WithMaxMemoryRows bounds the rows buffered by a memory sort.
func WithMaxMemoryRows(n int) Option {
	return func(o *options) {
		o.maxMemoryRows = n
	}
}

// WithPrefetch makes streaming merges read up to n rows ahead on every shard.
func WithPrefetch(n int) Option {
	return func(o *options) {
		o.prefetch = n
	}
}
