/*
Copyright 2025 The Vitess Authors.

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

package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagVariants(t *testing.T) {
	tests := []struct {
		input               string
		expectedUnderscored string
		expectedDashed      string
	}{
		{"a-b", "a_b", "a-b"},
		{"a_b", "a_b", "a-b"},
		{"a-b_c", "a_b_c", "a-b-c"},
		{"--a_b", "--a_b", "--a-b"},
		{"example", "example", "example"},
	}

	for _, tc := range tests {
		underscored, dashed := flagVariants(tc.input)
		assert.Equalf(t, tc.expectedUnderscored, underscored, "underscored variant of %q", tc.input)
		assert.Equalf(t, tc.expectedDashed, dashed, "dashed variant of %q", tc.input)
	}
}

// testFlagVar registers a flag through setter and checks it parses.
func testFlagVar[T any](t *testing.T, name string, def T, arg string, want T, setter func(fs *pflag.FlagSet, p *T, name string, def T, usage string)) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var value T
	setter(fs, &value, name, def, "usage of "+name)

	f := fs.Lookup(name)
	require.NotNil(t, f, "flag %q must be registered", name)
	assert.Equal(t, "usage of "+name, f.Usage)
	assert.Equal(t, def, value)

	require.NoError(t, fs.Parse([]string{"--" + name, arg}))
	assert.Equal(t, want, value)
}

func TestSetFlagVars(t *testing.T) {
	testFlagVar(t, "int-flag", 42, "7", 7, SetFlagIntVar)
	testFlagVar(t, "bool-flag", false, "true", true, SetFlagBoolVar)
	testFlagVar(t, "string-flag", "a", "b", "b", SetFlagStringVar)
	testFlagVar(t, "duration-flag", time.Second, "2m", 2*time.Minute, SetFlagDurationVar)
	testFlagVar(t, "array-flag", nil, "s1=sqlite:a,b", []string{"s1=sqlite:a,b"}, SetFlagStringArrayVar)
}

func TestUnderscoreWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	previous := warnings
	warnings = buf
	defer func() { warnings = previous }()

	var v int
	SetFlagIntVar(pflag.NewFlagSet("test", pflag.ContinueOnError), &v, "max_rows", 0, "")
	assert.Equal(t, "[WARNING] flag \"max_rows\" uses underscores, register it as \"max-rows\"\n", buf.String())
}

func TestSetFlagEnumVar(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var order string
	SetFlagEnumVar(fs, &order, "nulls-order", "low", []string{"low", "high"}, "where NULL sorts")

	assert.Equal(t, "low", order)
	assert.Equal(t, "where NULL sorts (one of: low, high)", fs.Lookup("nulls-order").Usage)

	require.NoError(t, fs.Parse([]string{"--nulls-order", "HIGH"}))
	assert.Equal(t, "high", order)

	err := fs.Parse([]string{"--nulls-order", "middle"})
	assert.ErrorContains(t, err, `invalid value "middle": expected one of low, high`)
}

func TestNormalizeUnderscoresToDashes(t *testing.T) {
	buf := &bytes.Buffer{}
	previous := warnings
	warnings = buf
	defer func() { warnings = previous }()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	assert.EqualValues(t, "merge-max-memory-rows", NormalizeUnderscoresToDashes(fs, "merge_max_memory_rows"))
	assert.EqualValues(t, "log_dir", NormalizeUnderscoresToDashes(fs, "log_dir"))
	assert.EqualValues(t, "a-b_c", NormalizeUnderscoresToDashes(fs, "a-b_c"))
	assert.EqualValues(t, "merge-max-memory-rows", NormalizeUnderscoresToDashes(fs, "merge_max_memory_rows"))
	assert.Equal(t, "Flag --merge_max_memory_rows has been deprecated, use --merge-max-memory-rows instead \n", buf.String())
}
