package interfaces

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scopulus/internal/models"
)

// JobInput is a typed, validated job payload. Each job type registers a
// concrete input whose Validate applies that type's schema.
type JobInput interface {
	Validate() error
}

// JobOutput is a typed job result. Outputs are validated again before
// they are reported, so a handler bug surfaces as an internal error
// rather than a malformed result POST.
type JobOutput interface {
	Validate() error
}

// HandlerContext carries everything a handler may touch for one job. It
// is built at dispatch and dropped at completion; handlers never see the
// runtime itself.
type HandlerContext struct {
	AssignmentID string
	JobID        string
	StorageURI   string
	Region       string // object-store region, not an assessment region
	S3Endpoint   string
	CachePath    string
	DataPath     string

	API      APIClient
	Store    ObjectStore
	Regional RegionalProvider
	Assessor Assessor
	Cache    ArtifactCache

	Logger arbor.ILogger
}

// JobHandler executes one job type. Handle receives the typed input the
// registry decoded and returns the typed output the registry validates.
//
// Handlers classify errors below themselves only when they can add
// context; otherwise errors bubble to the runtime, which classifies,
// reports, and loops.
type JobHandler interface {
	// Handle processes a single claimed job.
	Handle(ctx context.Context, input JobInput, hctx *HandlerContext) (JobOutput, error)

	// JobType returns the job kind this handler serves.
	JobType() models.JobType
}
