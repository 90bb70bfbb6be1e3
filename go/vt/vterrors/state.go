/*
Copyright 2021 The Vitess Authors.

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

import "shardmerge.io/shardmerge/go/vt/vtrpc"

// State is error state
type State int

// All the error states
const (
	Undefined State = iota

	// invalid argument
	BadFieldError
	DataOutOfRange
	WrongFieldWithGroup
	WrongGroupField
	WrongValue
	WrongArguments

	// failed precondition
	WrongNumberOfColumnsInSelect
	OperandColumns

	// resource exhausted
	MemoryLimitExceeded

	// cancelled
	QueryInterrupted

	// unimplemented
	NotSupportedYet

	// No state should be added below NumOfStates
	NumOfStates
)

var stateNames = map[State]string{
	Undefined:                    "Undefined",
	BadFieldError:                "BadFieldError",
	DataOutOfRange:               "DataOutOfRange",
	WrongFieldWithGroup:          "WrongFieldWithGroup",
	WrongGroupField:              "WrongGroupField",
	WrongValue:                   "WrongValue",
	WrongArguments:               "WrongArguments",
	WrongNumberOfColumnsInSelect: "WrongNumberOfColumnsInSelect",
	OperandColumns:               "OperandColumns",
	MemoryLimitExceeded:          "MemoryLimitExceeded",
	QueryInterrupted:             "QueryInterrupted",
	NotSupportedYet:              "NotSupportedYet",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Undefined"
}

// ErrorWithState is used to return the error State is such can be found
type ErrorWithState interface {
	ErrorState() State
}

// ErrorWithCode returns the error code
type ErrorWithCode interface {
	ErrorCode() vtrpc.Code
}
