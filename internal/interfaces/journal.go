package interfaces

import "github.com/ternarybob/scopulus/internal/models"

// Journal is the local record of assignments this worker touched. It is
// forensic only: journal failures are logged, never fatal, and never
// block job flow.
type Journal interface {
	// RecordClaim notes a freshly claimed assignment.
	RecordClaim(assignment *models.JobAssignment) error

	// RecordResult notes an assignment's terminal state.
	RecordResult(assignmentID string, status string, errorKind string, errorMessage string) error

	// Close releases the backing store.
	Close() error
}
