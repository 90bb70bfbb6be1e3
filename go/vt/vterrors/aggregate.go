/*
Copyright 2019 The Vitess Authors.

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

package vterrors

import (
	"sort"
	"strings"

	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// A list of all vtrpc.Codes, ordered by priority. These priorities are
// used when aggregating multiple errors in one error.
const (
	PriorityOK = iota
	PriorityCanceled
	PriorityAlreadyExists
	PriorityOutOfRange
	PriorityUnavailable
	PriorityFailedPrecondition
	PriorityResourceExhausted
	PriorityDeadlineExceeded
	PriorityAborted
	PriorityUnknown
	PriorityUnauthenticated
	PriorityPermissionDenied
	PriorityInvalidArgument
	PriorityNotFound
	PriorityUnimplemented
	PriorityInternal
	PriorityDataLoss
)

var errorPriorities = map[vtrpc.Code]int{
	vtrpc.CodeOK:                 PriorityOK,
	vtrpc.CodeCanceled:           PriorityCanceled,
	vtrpc.CodeUnknown:            PriorityUnknown,
	vtrpc.CodeInvalidArgument:    PriorityInvalidArgument,
	vtrpc.CodeDeadlineExceeded:   PriorityDeadlineExceeded,
	vtrpc.CodeNotFound:           PriorityNotFound,
	vtrpc.CodeAlreadyExists:      PriorityAlreadyExists,
	vtrpc.CodePermissionDenied:   PriorityPermissionDenied,
	vtrpc.CodeUnauthenticated:    PriorityUnauthenticated,
	vtrpc.CodeResourceExhausted:  PriorityResourceExhausted,
	vtrpc.CodeFailedPrecondition: PriorityFailedPrecondition,
	vtrpc.CodeAborted:            PriorityAborted,
	vtrpc.CodeOutOfRange:         PriorityOutOfRange,
	vtrpc.CodeUnimplemented:      PriorityUnimplemented,
	vtrpc.CodeInternal:           PriorityInternal,
	vtrpc.CodeUnavailable:        PriorityUnavailable,
	vtrpc.CodeDataLoss:           PriorityDataLoss,
}

// Aggregate aggregates several errors into a single one.
// The resulting error code will be the one with the highest
// priority as defined by the priority constants in this package.
func Aggregate(errors []error) error {
	var nonNil []error
	for _, err := range errors {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}
	return New(aggregateCodes(nonNil), aggregateErrors(nonNil))
}

func aggregateCodes(errors []error) vtrpc.Code {
	highCode := vtrpc.CodeOK
	for _, e := range errors {
		code := Code(e)
		if errorPriorities[code] > errorPriorities[highCode] {
			highCode = code
		}
	}
	return highCode
}

// aggregateErrors aggregates an array of errors into a single error by string concatenation.
func aggregateErrors(errs []error) string {
	errStrs := make([]string, 0, len(errs))
	for _, e := range errs {
		errStrs = append(errStrs, e.Error())
	}
	// sort the error strings so we always have deterministic ordering
	sort.Strings(errStrs)
	return strings.Join(errStrs, "\n")
}
