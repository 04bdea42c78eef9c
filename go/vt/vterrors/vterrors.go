/*
Copyright 2026 The MPPDB Authors.

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

// Package vterrors provides errors that carry a gRPC code and a State.
//
// Create errors with New, Errorf or NewErrorf. Annotate existing errors with
// Wrap or Wrapf; wrapping keeps the code and state of the innermost coded
// error. Callers decide on retry and response mapping through Code, ErrState
// and IsRetryable, never by matching error strings.
package vterrors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

type vtError struct {
	code  codes.Code
	state State
	msg   string
	cause error
}

// New returns an error with the supplied code and message.
func New(code codes.Code, message string) error {
	return &vtError{code: code, msg: message}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
func Errorf(code codes.Code, format string, args ...any) error {
	return &vtError{code: code, msg: fmt.Sprintf(format, args...)}
}

// NewErrorf is Errorf with an additional State.
func NewErrorf(code codes.Code, state State, format string, args ...any) error {
	return &vtError{code: code, state: state, msg: fmt.Sprintf(format, args...)}
}

func (e *vtError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *vtError) Unwrap() error { return e.cause }

// ErrorCode returns the code of the error.
func (e *vtError) ErrorCode() codes.Code { return e.code }

// ErrorState returns the state of the error.
func (e *vtError) ErrorState() State { return e.state }

// Wrap returns an error annotating err with message. The code and state of
// err are preserved. If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &vtError{code: Code(err), state: ErrState(err), msg: message, cause: err}
}

// Wrapf is Wrap with a format specifier.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithState returns err re-coded with code and state, keeping it as the cause.
func WithState(err error, code codes.Code, state State, message string) error {
	if err == nil {
		return nil
	}
	return &vtError{code: code, state: state, msg: message, cause: err}
}

// Code returns the code of the first coded error in err's chain. Context
// errors map to Canceled and DeadlineExceeded; anything else is Unknown.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var vte *vtError
	if errors.As(err, &vte) {
		return vte.code
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// ErrState returns the State of the first stateful error in err's chain.
func ErrState(err error) State {
	var s ErrorWithState
	if errors.As(err, &s) {
		return s.ErrorState()
	}
	return Undefined
}

// IsRetryable reports whether the whole operation that produced err can be
// attempted again. Resolution failures are retryable; validation,
// authorization and not-found outcomes are not.
func IsRetryable(err error) bool {
	switch Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}
