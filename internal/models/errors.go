// -----------------------------------------------------------------------
// Worker Errors - Classified error kinds carried from handlers to the API
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the runtime knows whether to retry,
// report, or exit. Kinds are semantic, not Go type names.
type ErrorKind string

const (
	ErrKindConfig         ErrorKind = "config"
	ErrKindAuthFailure    ErrorKind = "auth_failure"
	ErrKindTransient      ErrorKind = "transient"
	ErrKindBadRequest     ErrorKind = "bad_request"
	ErrKindProtocol       ErrorKind = "protocol"
	ErrKindInvalidInput   ErrorKind = "invalid_input"
	ErrKindInternal       ErrorKind = "internal"
	ErrKindUnknownJobType ErrorKind = "unknown_job_type"
	ErrKindUpload         ErrorKind = "upload"
)

// ReportedAs maps an error kind onto the failure kind string the result
// endpoint stores. Unknown job types count as invalid input on the wire;
// client-side protocol and request bugs surface as internal.
func (k ErrorKind) ReportedAs() string {
	switch k {
	case ErrKindTransient:
		return "transient"
	case ErrKindInvalidInput, ErrKindUnknownJobType:
		return "invalid_input"
	case ErrKindUpload:
		return "upload"
	default:
		return "internal"
	}
}

// Retryable reports whether local retry policy may apply to this kind.
// Only transient failures are ever retried; invalid input never is.
func (k ErrorKind) Retryable() bool {
	return k == ErrKindTransient
}

// WorkerError is an error carrying a classification kind. Handlers wrap
// below themselves only when they can add context; otherwise errors bubble
// to the runtime which classifies, reports, and loops.
type WorkerError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *WorkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a classified error with a static message.
func NewWorkerError(kind ErrorKind, message string) *WorkerError {
	return &WorkerError{Kind: kind, Message: message}
}

// WorkerErrorf creates a classified error with a formatted message.
func WorkerErrorf(kind ErrorKind, format string, args ...interface{}) *WorkerError {
	return &WorkerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error, preserving it for errors.Is/As.
func WrapError(kind ErrorKind, err error, message string) *WorkerError {
	return &WorkerError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors are internal by definition.
func KindOf(err error) ErrorKind {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ErrKindInternal
}
