package interfaces

import (
	"context"

	"github.com/ternarybob/scopulus/internal/models"
)

// APIClient is the authenticated client for the job-dispatch API. All
// calls attach the bearer token and retry once on 401 after a refresh.
type APIClient interface {
	// Login authenticates eagerly. The runtime calls this during startup
	// so credential rejection fails fast; later calls refresh on demand.
	Login(ctx context.Context) error

	// Get performs an authenticated GET and decodes the JSON reply into
	// out when the status carries a body. Returns the HTTP status code.
	Get(ctx context.Context, path string, out interface{}) (int, error)

	// Post performs an authenticated POST with a JSON body, decoding the
	// reply into out when out is non-nil. Returns the HTTP status code.
	Post(ctx context.Context, path string, body, out interface{}) (int, error)

	// PollJob requests a claim for any of the given types. A nil
	// assignment with nil error means no job was available.
	PollJob(ctx context.Context, types []models.JobType) (*models.JobAssignment, error)

	// SubmitResult posts a terminal result for an assignment, retrying
	// transient failures up to three attempts with exponential backoff.
	SubmitResult(ctx context.Context, assignmentID string, result models.JobResult) error
}
