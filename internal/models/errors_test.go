package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestReportedAs(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrKindTransient, "transient"},
		{ErrKindInvalidInput, "invalid_input"},
		{ErrKindUnknownJobType, "invalid_input"},
		{ErrKindUpload, "upload"},
		{ErrKindInternal, "internal"},
		{ErrKindBadRequest, "internal"},
		{ErrKindProtocol, "internal"},
	}
	for _, tt := range tests {
		if got := tt.kind.ReportedAs(); got != tt.expected {
			t.Errorf("%s: got %s, expected %s", tt.kind, got, tt.expected)
		}
	}
}

func TestKindOf(t *testing.T) {
	base := NewWorkerError(ErrKindTransient, "connection reset")
	if KindOf(base) != ErrKindTransient {
		t.Errorf("direct: got %s", KindOf(base))
	}

	wrapped := fmt.Errorf("poll failed: %w", base)
	if KindOf(wrapped) != ErrKindTransient {
		t.Errorf("wrapped: got %s", KindOf(wrapped))
	}

	if KindOf(errors.New("plain")) != ErrKindInternal {
		t.Errorf("unclassified errors should be internal")
	}
}

func TestWrapErrorPreservesChain(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := WrapError(ErrKindTransient, inner, "upload attempt failed")

	if !errors.Is(err, inner) {
		t.Error("wrapped error lost the chain")
	}
	var we *WorkerError
	if !errors.As(err, &we) || we.Kind != ErrKindTransient {
		t.Error("classification lost")
	}
}

func TestFailedResultUsesWireKind(t *testing.T) {
	result := FailedResult(ErrKindUnknownJobType, "no handler for FOO")
	if result.Status != ResultFailed {
		t.Errorf("status: %s", result.Status)
	}
	if result.Error == nil || result.Error.Kind != "invalid_input" {
		t.Errorf("unknown job type should report as invalid_input: %+v", result.Error)
	}
}
