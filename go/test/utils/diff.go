/*
Copyright 2020 The Vitess Authors.

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
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// diffOptions also compare unexported fields, so sqltypes values and merge
// plans are compared by content.
var diffOptions = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool {
		return true
	}),
}

// MustMatch fails the test with a diff when got differs from want. A nil
// slice and an empty slice are different.
//
//	utils.MustMatch(t, want, result, "merged result")
func MustMatch(t testing.TB, want, got any, errMsg ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got, diffOptions...); diff != "" {
		t.Fatalf("%v: (-want +got)\n%v", errMsg, diff)
	}
}
