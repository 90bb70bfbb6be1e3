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
	"context"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/vterrors"
)

// Primitive is one operator of a merge plan. Rows are pulled from the root
// with Next until it returns io.EOF. Close releases the operator and all of
// its inputs.
type Primitive interface {
	Fields() []*sqltypes.Field
	Next(ctx context.Context) (sqltypes.Row, error)
	Close() error

	// Inputs is used to enumerate the inputs to a primitive.
	// The returned list is used to describe the plan.
	Inputs() []Primitive

	description() PlanDescription
}

// closeInputs closes every input and aggregates the failures.
func closeInputs(inputs []Primitive) error {
	var errs []error
	for _, in := range inputs {
		if err := in.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return vterrors.Aggregate(errs)
}
