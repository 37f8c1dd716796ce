// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package apperr defines the error taxonomy shared across shards and
// services: a small set of kinds that the HTTP and gRPC boundaries map to
// status codes, and that worker handlers use to decide whether a failure
// is retryable.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary mapping and retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindDependencyUnavailable
	KindTransientWorkerFailure
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	case KindTransientWorkerFailure:
		return "transient_worker_failure"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is an apperr-classified error wrapping an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, nil, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, nil, format, args...)
}

func DependencyUnavailable(err error, format string, args ...interface{}) *Error {
	return newf(KindDependencyUnavailable, err, format, args...)
}

func Transient(err error, format string, args ...interface{}) *Error {
	return newf(KindTransientWorkerFailure, err, format, args...)
}

func Fatal(err error, format string, args ...interface{}) *Error {
	return newf(KindFatal, err, format, args...)
}

// KindOf extracts the Kind of err, walking the wrap chain. Unclassified
// errors report KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Retryable reports whether a job handler should retry (vs. dead-letter)
// on this error, per the TransientWorkerFailure / Fatal split in the
// error handling design.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransientWorkerFailure, KindDependencyUnavailable, KindUnknown:
		return true
	default:
		return false
	}
}
