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

package merger

import (
	"strconv"
	"strings"

	"shardmerge.io/shardmerge/go/sqltypes"
)

// columnResolver turns column labels into 1-based ordinals of the shard
// result metadata.
type columnResolver struct {
	fields        []*sqltypes.Field
	caseSensitive bool
}

func (r *columnResolver) match(name, label string) bool {
	if r.caseSensitive {
		return name == label
	}
	return strings.EqualFold(name, label)
}

// resolve returns the ordinal of label. A label that carries a qualifier,
// like o.user_id, also matches the bare column.
func (r *columnResolver) resolve(label string) (int, error) {
	for i, f := range r.fields {
		if r.match(f.Name, label) {
			return i + 1, nil
		}
	}
	if dot := strings.LastIndexByte(label, '.'); dot >= 0 && dot < len(label)-1 {
		bare := label[dot+1:]
		for i, f := range r.fields {
			if r.match(f.Name, bare) {
				return i + 1, nil
			}
		}
	}
	return 0, &UnresolvedColumnError{Column: label}
}

// resolveItem resolves an item that may carry a label, an ordinal, or both.
// An ordinal that agrees with the label disambiguates duplicate column
// names; otherwise the label wins.
func (r *columnResolver) resolveItem(label string, index int) (int, error) {
	if label == "" {
		if index < 1 || index > len(r.fields) {
			return 0, &UnresolvedColumnError{Column: strconv.Itoa(index)}
		}
		return index, nil
	}
	if index >= 1 && index <= len(r.fields) && r.match(r.fields[index-1].Name, label) {
		return index, nil
	}
	return r.resolve(label)
}
