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

// Package vterrors provides simple error handling primitives for the merge
// engine.
//
// In all Vitess-style code, errors should be propagated using vterrors.Wrapf()
// and not fmt.Errorf(). This makes sure that stacktraces are kept and
// propagated correctly.
//
// # New errors should be created using vterrors.New or vterrors.Errorf
//
// Every error carries a canonical code (see the vtrpc package); the code of
// an arbitrary error is obtained with vterrors.Code. Errors with a known
// MySQL-like state are created with vterrors.NewErrorf and the state is
// obtained with vterrors.ErrState.
//
// # Adding context to an error
//
// The vterrors.Wrap function returns a new error that adds context to the
// original error. For example
//
//	_, err := stream.Next(ctx)
//	if err != nil {
//	        return vterrors.Wrap(err, "read failed")
//	}
//
// # Retrieving the cause of an error
//
// Using vterrors.Wrap constructs a stack of errors, adding context to the
// preceding error. vterrors.RootCause walks the chain and returns the
// original error. errors.Is and errors.As work on every wrapped error.
//
// # Formatted printing of errors
//
// All error values returned from this package implement fmt.Formatter and can
// be formatted by the fmt package. The following verbs are supported
//
//	%s    print the error. If the error has a Cause it will be
//	      printed recursively
//	%v    see %s
//	%+v   extended format. Each Frame of the error's StackTrace will
//	      be printed in detail.
//
// Most but not all of the code in this file was originally copied from
// https://github.com/pkg/errors/blob/v0.8.0/errors.go
package vterrors

import (
	"context"
	"errors"
	"fmt"
	"io"

	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// LogErrStacks controls whether or not printing errors includes the
// embedded stack trace in the output.
var LogErrStacks bool

type vtError struct {
	code  vtrpc.Code
	state State
	err   string
	*stack
}

// New returns an error with the supplied message.
// New also records the stack trace at the point it was called.
func New(code vtrpc.Code, message string) error {
	return &vtError{
		code:  code,
		err:   message,
		stack: callers(),
	}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
// Errorf also records the stack trace at the point it was called.
func Errorf(code vtrpc.Code, format string, args ...any) error {
	return &vtError{
		code:  code,
		err:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

// NewErrorf formats according to a format specifier and returns the string
// as a value that satisfies error. It also attaches the given State.
// NewErrorf also records the stack trace at the point it was called.
func NewErrorf(code vtrpc.Code, state State, format string, args ...any) error {
	return &vtError{
		code:  code,
		state: state,
		err:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

func (f *vtError) Error() string {
	return f.err
}

func (f *vtError) ErrorCode() vtrpc.Code {
	return f.code
}

func (f *vtError) ErrorState() State {
	return f.state
}

func (f *vtError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		panicIfError(io.WriteString(s, "Code: "+f.code.String()+"\n"))
		panicIfError(io.WriteString(s, f.err+"\n"))
		if s.Flag('+') || LogErrStacks {
			f.stack.Format(s, verb)
		}
		return
	case 's':
		panicIfError(io.WriteString(s, f.err))
	case 'q':
		panicIfError(fmt.Fprintf(s, "%q", f.err))
	}
}

// Wrap returns an error annotating err with a stack trace
// at the point Wrap is called, and the supplied message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   message,
		stack: callers(),
	}
}

// Wrapf returns an error annotating err with a stack trace
// at the point Wrapf is call, and the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrapping struct {
	cause error
	msg   string
	stack *stack
}

func (w *wrapping) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrapping) Cause() error  { return w.cause }
func (w *wrapping) Unwrap() error { return w.cause }

func (w *wrapping) Format(s fmt.State, verb rune) {
	if rune('v') == verb {
		panicIfError(fmt.Fprintf(s, "%v\n", w.Cause()))
		panicIfError(io.WriteString(s, w.msg))
		if s.Flag('+') || LogErrStacks {
			w.stack.Format(s, verb)
		}
		return
	}

	if rune('s') == verb || rune('q') == verb {
		panicIfError(io.WriteString(s, w.Error()))
	}
}

// since we can't return an error, let's panic if something goes wrong here
func panicIfError(_ int, err error) {
	if err != nil {
		panic(err)
	}
}

// RootCause returns the underlying cause of the error, if possible.
// An error value has a cause if it implements the following
// interface:
//
//	type causer interface {
//	       Cause() error
//	}
//
// If the error does not implement Cause, the original error will
// be returned. If the error is nil, nil will be returned without further
// investigation.
func RootCause(err error) error {
	for {
		cause := Cause(err)
		if cause == nil {
			return err
		}
		err = cause
	}
}

// Cause will return the immediate cause, if possible.
// An error value has a cause if it implements the following
// interface:
//
//	type causer interface {
//	       Cause() error
//	}
//
// If the error does not implement Cause, nil will be returned
func Cause(err error) error {
	type causer interface {
		Cause() error
	}

	causerObj, ok := err.(causer)
	if !ok {
		return nil
	}

	return causerObj.Cause()
}

// Code returns the error code if it's a vtError.
// If err is nil, it returns ok.
func Code(err error) vtrpc.Code {
	if err == nil {
		return vtrpc.CodeOK
	}
	var withCode ErrorWithCode
	if errors.As(err, &withCode) {
		return withCode.ErrorCode()
	}

	// Handle some special cases.
	switch {
	case errors.Is(err, context.Canceled):
		return vtrpc.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return vtrpc.CodeDeadlineExceeded
	}
	return vtrpc.CodeUnknown
}

// ErrState returns the error state if it's a vtError.
// If err is nil, it returns Undefined.
func ErrState(err error) State {
	var withState ErrorWithState
	if err != nil && errors.As(err, &withState) {
		return withState.ErrorState()
	}
	return Undefined
}

// Equals returns true iff the error message and the code returned by Code()
// are equal.
func Equals(a, b error) bool {
	if a == nil && b == nil {
		// Both are nil.
		return true
	}

	if a == nil || b == nil {
		// One of the two is nil, since we know both are not nil.
		return false
	}

	return a.Error() == b.Error() && Code(a) == Code(b)
}

// Print is meant to print the vtError object in test failures.
// For comparing two vterrors, use Equals() instead.
func Print(err error) string {
	return fmt.Sprintf("%v: %v\n", Code(err), err.Error())
}
