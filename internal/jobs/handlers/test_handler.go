// Package handlers contains the shipped job handlers, one per job type.
package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// DefaultTestDuration is how long a TEST job runs. Long enough that
// fleet plumbing (claim, result POST, object-store credentials) is
// visibly exercised end to end.
const DefaultTestDuration = 10 * time.Second

// TestHandler serves TEST jobs: sleep, then return an empty output.
type TestHandler struct {
	Duration time.Duration
}

var _ interfaces.JobHandler = (*TestHandler)(nil)

// NewTestHandler creates the handler with the default duration.
func NewTestHandler() *TestHandler {
	return &TestHandler{Duration: DefaultTestDuration}
}

func (h *TestHandler) JobType() models.JobType {
	return models.JobTypeTest
}

func (h *TestHandler) Handle(ctx context.Context, input interfaces.JobInput, hctx *interfaces.HandlerContext) (interfaces.JobOutput, error) {
	in := input.(*models.TestJobInput)
	if in.ID != nil {
		hctx.Logger.Info().Int64("id", *in.ID).Msg("Test job started")
	}

	timer := time.NewTimer(h.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return &models.TestJobOutput{}, nil
}
