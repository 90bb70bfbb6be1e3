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

// Package utils contains pflag registration helpers shared by the merge
// engine packages and the commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// warnings is where flag naming warnings are printed.
var warnings io.Writer = os.Stderr

// flagVariants returns two variants of the flag name:
// one with dashes replaced by underscores and one with underscores replaced by dashes.
func flagVariants(name string) (underscored, dashed string) {
	prefix := "--"
	if strings.HasPrefix(name, prefix) {
		nameWithoutPrefix := strings.TrimPrefix(name, prefix)
		underscored = prefix + strings.ReplaceAll(nameWithoutPrefix, "-", "_")
		dashed = prefix + strings.ReplaceAll(nameWithoutPrefix, "_", "-")
	} else {
		underscored = strings.ReplaceAll(name, "-", "_")
		dashed = strings.ReplaceAll(name, "_", "-")
	}
	return
}

func warnUnderscores(name string) {
	if strings.Contains(name, "_") {
		_, dashed := flagVariants(name)
		fmt.Fprintf(warnings, "[WARNING] flag %q uses underscores, register it as %q\n", name, dashed)
	}
}

// setFlagVar is a generic helper for registering flags.
// setFunc should be a function with signature func(fs *pflag.FlagSet, p *T, name string, def T, usage string)
func setFlagVar[T any](fs *pflag.FlagSet, p *T, name string, def T, usage string,
	setFunc func(fs *pflag.FlagSet, p *T, name string, def T, usage string)) {
	warnUnderscores(name)
	setFunc(fs, p, name, def, usage)
}

func SetFlagIntVar(fs *pflag.FlagSet, p *int, name string, def int, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).IntVar)
}

func SetFlagBoolVar(fs *pflag.FlagSet, p *bool, name string, def bool, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).BoolVar)
}

func SetFlagStringVar(fs *pflag.FlagSet, p *string, name string, def string, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).StringVar)
}

func SetFlagDurationVar(fs *pflag.FlagSet, p *time.Duration, name string, def time.Duration, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).DurationVar)
}

func SetFlagStringArrayVar(fs *pflag.FlagSet, p *[]string, name string, def []string, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).StringArrayVar)
}

// SetFlagVar registers a flag that implements the pflag.Value interface.
func SetFlagVar(fs *pflag.FlagSet, value pflag.Value, name, usage string) {
	warnUnderscores(name)
	fs.Var(value, name, usage)
}

// SetFlagEnumVar registers a string flag restricted to the given choices.
// Values are matched case insensitively and stored lower cased.
func SetFlagEnumVar(fs *pflag.FlagSet, p *string, name string, def string, choices []string, usage string) {
	*p = def
	SetFlagVar(fs, &enumValue{p: p, choices: choices}, name, fmt.Sprintf("%s (one of: %s)", usage, strings.Join(choices, ", ")))
}

type enumValue struct {
	p       *string
	choices []string
}

func (e *enumValue) Set(s string) error {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(e.choices, normalized) {
		return fmt.Errorf("invalid value %q: expected one of %s", s, strings.Join(e.choices, ", "))
	}
	*e.p = normalized
	return nil
}

func (e *enumValue) String() string {
	if e.p == nil {
		return ""
	}
	return *e.p
}

func (e *enumValue) Type() string {
	return "string"
}

var (
	deprecationWarningsEmitted = make(map[string]bool)
)

// NormalizeUnderscoresToDashes translates flag names from underscores to
// dashes and prints a deprecation warning once per flag.
func NormalizeUnderscoresToDashes(f *pflag.FlagSet, name string) pflag.NormalizedName {
	// `log_dir`, `log_link` and `log_backtrace_at` are exceptions because they are used by glog.
	if name == "log_dir" || name == "log_link" || name == "log_backtrace_at" {
		return pflag.NormalizedName(name)
	}

	// We only want to normalize flags that purely use underscores.
	if !strings.Contains(name, "_") || strings.Contains(name, "-") {
		return pflag.NormalizedName(name)
	}

	normalizedName := strings.ReplaceAll(name, "_", "-")

	// Only emit a warning if we haven't emitted one yet
	if !deprecationWarningsEmitted[name] {
		deprecationWarningsEmitted[name] = true
		fmt.Fprintf(warnings, "Flag --%s has been deprecated, use --%s instead \n", name, normalizedName)
	}

	return pflag.NormalizedName(normalizedName)
}
