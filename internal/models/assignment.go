// -----------------------------------------------------------------------
// Job Assignment - Claimed work item owned by this worker until terminal
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
)

// StorageScheme names the object-store protocol for a job's artifacts.
// Only S3 is defined today.
type StorageScheme string

const StorageSchemeS3 StorageScheme = "S3"

// JobAssignment is received from the API when a claim succeeds. The claim
// is atomic server-side: a successful poll means this worker owns the
// assignment exclusively until it posts a terminal result.
type JobAssignment struct {
	AssignmentID  string          `json:"assignment_id"`
	JobID         string          `json:"job_id"`
	Type          JobType         `json:"type"`
	InputPayload  json.RawMessage `json:"input_payload"`
	StorageURI    string          `json:"storage_uri"`
	StorageScheme StorageScheme   `json:"storage_scheme,omitempty"`
}

// Validate checks the assignment carries everything a handler needs.
func (a *JobAssignment) Validate() error {
	if a.AssignmentID == "" {
		return fmt.Errorf("assignment ID is required")
	}
	if a.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if a.Type == "" {
		return fmt.Errorf("job type is required")
	}
	if a.StorageScheme != "" && a.StorageScheme != StorageSchemeS3 {
		return fmt.Errorf("unsupported storage scheme %q", a.StorageScheme)
	}
	return nil
}

// ResultStatus is the terminal state reported back to the API.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
)

// ResultError carries the failure classification across the wire.
type ResultError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JobResult is the body POSTed to /jobs/assignments/<id>/result.
type JobResult struct {
	Status ResultStatus    `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  *ResultError    `json:"error,omitempty"`
}

// SucceededResult builds a terminal success carrying the handler output.
func SucceededResult(output json.RawMessage) JobResult {
	return JobResult{Status: ResultSucceeded, Output: output}
}

// FailedResult builds a terminal failure from a classified error kind.
func FailedResult(kind ErrorKind, message string) JobResult {
	return JobResult{
		Status: ResultFailed,
		Error:  &ResultError{Kind: kind.ReportedAs(), Message: message},
	}
}

// CancelledResult marks an in-flight job abandoned by a terminal signal.
// Reported best-effort before the worker exits.
func CancelledResult(message string) JobResult {
	return JobResult{
		Status: ResultFailed,
		Error:  &ResultError{Kind: "cancelled", Message: message},
	}
}
