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
	"errors"
	"fmt"
	"io"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

var (
	_ vterrors.ErrorWithCode  = (*UnresolvedColumnError)(nil)
	_ vterrors.ErrorWithState = (*UnresolvedColumnError)(nil)
	_ vterrors.ErrorWithCode  = (*RowProjectionMismatchError)(nil)
	_ vterrors.ErrorWithState = (*RowProjectionMismatchError)(nil)
	_ vterrors.ErrorWithCode  = (*ShardStreamError)(nil)
)

// UnresolvedColumnError is returned when an ORDER BY, GROUP BY or
// aggregation item names a column the shard results do not have.
type UnresolvedColumnError struct {
	Column string
}

func (e *UnresolvedColumnError) Error() string {
	return fmt.Sprintf("Unknown column '%s' in shard result metadata", e.Column)
}

// ErrorCode implements vterrors.ErrorWithCode.
func (e *UnresolvedColumnError) ErrorCode() vtrpc.Code {
	return vtrpc.CodeInvalidArgument
}

// ErrorState implements vterrors.ErrorWithState.
func (e *UnresolvedColumnError) ErrorState() vterrors.State {
	return vterrors.BadFieldError
}

// RowProjectionMismatchError is returned when a shard returns fewer
// columns than the merge needs, or a different number of columns than the
// other shards.
type RowProjectionMismatchError struct {
	Shard string
	Want  int
	Got   int
}

func newRowProjectionMismatch(shard string, want, got int) error {
	return &RowProjectionMismatchError{Shard: shard, Want: want, Got: got}
}

func (e *RowProjectionMismatchError) Error() string {
	return fmt.Sprintf("shard %s returned %d columns, expected %d", e.Shard, e.Got, e.Want)
}

// ErrorCode implements vterrors.ErrorWithCode.
func (e *RowProjectionMismatchError) ErrorCode() vtrpc.Code {
	return vtrpc.CodeFailedPrecondition
}

// ErrorState implements vterrors.ErrorWithState.
func (e *RowProjectionMismatchError) ErrorState() vterrors.State {
	return vterrors.WrongNumberOfColumnsInSelect
}

// ShardStreamError wraps a failure of one shard stream. Its code is the
// code of the cause.
type ShardStreamError struct {
	Shard string
	Err   error
}

func (e *ShardStreamError) Error() string {
	return "shard " + e.Shard + ": " + e.Err.Error()
}

func (e *ShardStreamError) Unwrap() error {
	return e.Err
}

// ErrorCode implements vterrors.ErrorWithCode.
func (e *ShardStreamError) ErrorCode() vtrpc.Code {
	return vterrors.Code(e.Err)
}

// ErrorState returns the state of the cause.
func (e *ShardStreamError) ErrorState() vterrors.State {
	return vterrors.ErrState(e.Err)
}

// wrapShardError attributes err to shard. io.EOF and errors that already
// name their shard are returned as they are.
func wrapShardError(shard string, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	var sse *ShardStreamError
	if errors.As(err, &sse) {
		return err
	}
	var rpm *RowProjectionMismatchError
	if errors.As(err, &rpm) {
		return err
	}
	return &ShardStreamError{Shard: shard, Err: err}
}

var errCursorClosed = vterrors.New(vtrpc.CodeFailedPrecondition, "merge cursor is closed")

func memoryLimitExceeded(limit int) error {
	return vterrors.NewErrorf(vtrpc.CodeResourceExhausted, vterrors.MemoryLimitExceeded, "in-memory row count exceeded allowed limit of %d", limit)
}
