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
	"fmt"
	"sort"
	"strings"
)

// PlanDescription is used to create a serializable representation of the Primitive tree
type PlanDescription struct {
	OperatorType string            `json:"OperatorType"`
	Variant      string            `json:"Variant,omitempty"`
	Other        map[string]string `json:"Other,omitempty"`
	Inputs       []PlanDescription `json:"Inputs"`
}

// PrimitiveToPlanDescription transforms a primitive tree into a corresponding PlanDescription tree
func PrimitiveToPlanDescription(in Primitive) PlanDescription {
	this := in.description()

	for _, input := range in.Inputs() {
		this.Inputs = append(this.Inputs, PrimitiveToPlanDescription(input))
	}

	if len(in.Inputs()) == 0 {
		this.Inputs = []PlanDescription{}
	}

	return this
}

// String renders the tree with one operator per line, inputs indented
// below their parent.
func (pd PlanDescription) String() string {
	var b strings.Builder
	pd.format(&b, 0)
	return b.String()
}

func (pd PlanDescription) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(pd.OperatorType)
	if pd.Variant != "" {
		fmt.Fprintf(b, " (%s)", pd.Variant)
	}
	keys := make([]string, 0, len(pd.Other))
	for k := range pd.Other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%s", k, pd.Other[k])
	}
	b.WriteByte('\n')
	for _, in := range pd.Inputs {
		in.format(b, depth+1)
	}
}
