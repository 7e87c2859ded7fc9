// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for nibblepipe.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrAccessDenied      = errors.New("access denied")
	ErrBusy              = errors.New("device busy")
	ErrInterrupted       = errors.New("interrupted")
	ErrDeviceClosed      = errors.New("device is closed")
	ErrSessionClosed     = errors.New("session is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeAccessDenied
	ErrCodeBusy
	ErrCodeInterrupted
	ErrCodeClosed
	ErrCodeInternal
)

// String returns the short name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeAccessDenied:
		return "access_denied"
	case ErrCodeBusy:
		return "busy"
	case ErrCodeInterrupted:
		return "interrupted"
	case ErrCodeClosed:
		return "closed"
	default:
		return "internal"
	}
}

// sentinel maps a code to the error matched by errors.Is.
func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeAccessDenied:
		return ErrAccessDenied
	case ErrCodeBusy:
		return ErrBusy
	case ErrCodeInterrupted:
		return ErrInterrupted
	case ErrCodeClosed:
		return ErrDeviceClosed
	default:
		return nil
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes both the code sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if s := e.Code.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// CodeOf extracts the ErrorCode carried by err, falling back to sentinel matching.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrResourceExhausted):
		return ErrCodeResourceExhausted
	case errors.Is(err, ErrAccessDenied):
		return ErrCodeAccessDenied
	case errors.Is(err, ErrBusy):
		return ErrCodeBusy
	case errors.Is(err, ErrInterrupted):
		return ErrCodeInterrupted
	case errors.Is(err, ErrDeviceClosed), errors.Is(err, ErrSessionClosed):
		return ErrCodeClosed
	}
	return ErrCodeInternal
}
