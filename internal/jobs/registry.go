// Package jobs provides the typed-handler registry: the mapping from job
// type to handler plus input/output codecs, and the dispatch path that
// validates payloads on the way in and results on the way out.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// Capability bundles one job type's handler with its input constructor.
// The constructor yields a fresh typed input for each dispatch; its
// Validate method is that type's input schema, and the handler's output
// carries its own.
type Capability struct {
	Handler  interfaces.JobHandler
	NewInput func() interfaces.JobInput
}

// Registry maps job types to capabilities. It is populated at init and
// read-only afterward, so dispatch needs no locking.
type Registry struct {
	capabilities map[models.JobType]Capability
	logger       arbor.ILogger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		capabilities: make(map[models.JobType]Capability),
		logger:       logger,
	}
}

// Register binds a capability to a job type. Idempotent: the last writer
// wins, which keeps test setup simple.
func (r *Registry) Register(jobType models.JobType, capability Capability) {
	r.capabilities[jobType] = capability
	r.logger.Debug().Str("job_type", jobType.String()).Msg("Handler registered")
}

// Registered reports whether a handler exists for the type.
func (r *Registry) Registered(jobType models.JobType) bool {
	_, ok := r.capabilities[jobType]
	return ok
}

// Types returns the registered job types.
func (r *Registry) Types() []models.JobType {
	types := make([]models.JobType, 0, len(r.capabilities))
	for _, jt := range models.AllJobTypes() {
		if r.Registered(jt) {
			types = append(types, jt)
		}
	}
	return types
}

// Dispatch decodes the raw payload, invokes the handler, validates the
// output, and returns it serialized for the result POST.
//
// Classification: an unregistered type is UnknownJobType and no handler
// runs; a payload failing decode or its schema is InvalidInput; an output
// failing its schema is InternalError (a handler bug, not the caller's).
func (r *Registry) Dispatch(ctx context.Context, jobType models.JobType, rawPayload json.RawMessage, hctx *interfaces.HandlerContext) (json.RawMessage, error) {
	capability, ok := r.capabilities[jobType]
	if !ok {
		return nil, models.WorkerErrorf(models.ErrKindUnknownJobType,
			"no handler registered for job type %q", jobType)
	}

	input := capability.NewInput()
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, input); err != nil {
			return nil, models.WrapError(models.ErrKindInvalidInput, err,
				fmt.Sprintf("payload for %s failed to decode", jobType))
		}
	}
	if err := input.Validate(); err != nil {
		if _, classified := err.(*models.WorkerError); classified {
			return nil, err
		}
		return nil, models.WrapError(models.ErrKindInvalidInput, err,
			fmt.Sprintf("payload for %s failed validation", jobType))
	}

	output, err := capability.Handler.Handle(ctx, input, hctx)
	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, models.WorkerErrorf(models.ErrKindInternal,
			"handler for %s returned no output", jobType)
	}
	if err := output.Validate(); err != nil {
		return nil, models.WrapError(models.ErrKindInternal, err,
			fmt.Sprintf("output for %s failed validation", jobType))
	}

	serialized, err := json.Marshal(output)
	if err != nil {
		return nil, models.WrapError(models.ErrKindInternal, err,
			fmt.Sprintf("output for %s failed to serialize", jobType))
	}
	return serialized, nil
}
