// -----------------------------------------------------------------------
// Worker Runtime - Poll, claim, dispatch, report, idle out
// -----------------------------------------------------------------------

// Package worker implements the claim loop: a single-goroutine state
// machine that polls the dispatch API, runs one job at a time through the
// handler registry, posts terminal results, and exits after a configured
// period without work.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/common"
	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/jobs"
	"github.com/ternarybob/scopulus/internal/models"
)

// State names the runtime's lifecycle phase.
type State string

const (
	StateStarting State = "STARTING"
	StatePolling  State = "POLLING"
	StateWorking  State = "WORKING"
	StateStopping State = "STOPPING"
)

// Journal statuses recorded for each assignment.
const (
	JournalClaimed   = "claimed"
	JournalSucceeded = "succeeded"
	JournalFailed    = "failed"
	JournalAbandoned = "abandoned"
)

// resultGraceTimeout bounds the best-effort cancellation report posted
// after the run context is already dead.
const resultGraceTimeout = 10 * time.Second

// Runtime drives the worker state machine. One job is in flight at a
// time; claim atomicity is the API's responsibility, so a successful poll
// means exclusive ownership of the assignment until a terminal POST.
type Runtime struct {
	config   *common.Config
	api      interfaces.APIClient
	registry *jobs.Registry
	store    interfaces.ObjectStore
	regional interfaces.RegionalProvider
	assessor interfaces.Assessor
	cache    interfaces.ArtifactCache
	journal  interfaces.Journal
	logger   arbor.ILogger
	workerID string

	mu    sync.Mutex
	state State

	// now is swappable for tests.
	now func() time.Time
}

// Deps bundles the collaborators the runtime orchestrates. The journal is
// optional; a nil journal disables local assignment records.
type Deps struct {
	API      interfaces.APIClient
	Registry *jobs.Registry
	Store    interfaces.ObjectStore
	Regional interfaces.RegionalProvider
	Assessor interfaces.Assessor
	Cache    interfaces.ArtifactCache
	Journal  interfaces.Journal
	Logger   arbor.ILogger
}

func NewRuntime(config *common.Config, deps Deps) *Runtime {
	return &Runtime{
		config:   config,
		api:      deps.API,
		registry: deps.Registry,
		store:    deps.Store,
		regional: deps.Regional,
		assessor: deps.Assessor,
		cache:    deps.Cache,
		journal:  deps.Journal,
		logger:   deps.Logger,
		workerID: common.NewWorkerID(),
		state:    StateStarting,
		now:      time.Now,
	}
}

// State returns the current lifecycle phase.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runtime) setState(next State) {
	r.mu.Lock()
	prev := r.state
	r.state = next
	r.mu.Unlock()
	if prev != next {
		r.logger.Debug().
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("State transition")
	}
}

// Run executes the state machine until idle timeout, context
// cancellation, or a fatal startup/auth error. A nil return is a clean
// exit; main maps errors to a non-zero exit code.
func (r *Runtime) Run(ctx context.Context) error {
	r.setState(StateStarting)
	r.logger.Info().
		Str("worker_id", r.workerID).
		Str("job_types", models.JobTypesCSV(r.config.Worker.JobTypes)).
		Msg("Worker starting")

	// JOB_TYPES selects the subset of registered capabilities this worker
	// claims; a configured type with no handler is a deployment mistake.
	for _, jt := range r.config.Worker.JobTypes {
		if !r.registry.Registered(jt) {
			return models.WorkerErrorf(models.ErrKindConfig,
				"configured job type %s has no registered handler", jt)
		}
	}

	if err := r.api.Login(ctx); err != nil {
		return models.WrapError(models.KindOf(err), err, "startup authentication failed")
	}
	if err := r.regional.Warm(ctx); err != nil {
		return models.WrapError(models.ErrKindConfig, err, "regional data load failed")
	}

	r.setState(StatePolling)
	// The idle clock tracks the last time this worker held a job. Empty
	// polls leave it running so a drained queue eventually idles the
	// fleet out; claiming or finishing a job winds it back.
	idleSince := r.now()

	for {
		if ctx.Err() != nil {
			r.setState(StateStopping)
			r.logger.Info().Msg("Stop requested, shutting down")
			return nil
		}

		assignment, err := r.api.PollJob(ctx, r.config.Worker.JobTypes)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				r.setState(StateStopping)
				return nil
			}
			if models.KindOf(err) == models.ErrKindAuthFailure {
				r.setState(StateStopping)
				return models.WrapError(models.ErrKindAuthFailure, err, "credentials rejected mid-run")
			}
			r.logger.Warn().Err(err).Msg("Poll failed")

		case assignment != nil:
			r.setState(StateWorking)
			r.execute(ctx, assignment)
			r.setState(StatePolling)
			// The result POST reply counts as activity.
			idleSince = r.now()
			continue

		default:
			if r.now().Sub(idleSince) >= r.config.Worker.IdleTimeout {
				r.setState(StateStopping)
				r.logger.Info().
					Dur("idle_timeout", r.config.Worker.IdleTimeout).
					Msg("Idle timeout reached, shutting down")
				return nil
			}
		}

		if err := sleepCtx(ctx, r.config.Worker.PollInterval); err != nil {
			r.setState(StateStopping)
			return nil
		}
	}
}

// execute runs one claimed assignment to its terminal state. Handler
// errors never escape: every outcome becomes a result POST and a journal
// record, and the loop continues.
func (r *Runtime) execute(ctx context.Context, assignment *models.JobAssignment) {
	jobLogger := r.logger.WithCorrelationId(assignment.JobID)
	jobLogger.Info().
		Str("assignment_id", assignment.AssignmentID).
		Str("type", assignment.Type.String()).
		Msg("Job claimed")

	r.journalClaim(assignment, jobLogger)

	started := r.now()
	output, err := r.registry.Dispatch(ctx, assignment.Type, assignment.InputPayload, r.handlerContext(assignment, jobLogger))
	elapsed := r.now().Sub(started)

	if err != nil {
		r.reportFailure(ctx, assignment, err, elapsed, jobLogger)
		return
	}

	jobLogger.Info().
		Dur("elapsed", elapsed).
		Msg("Job succeeded")
	result := models.SucceededResult(output)
	if err := r.api.SubmitResult(ctx, assignment.AssignmentID, result); err != nil {
		jobLogger.Error().Err(err).Msg("Result POST exhausted attempts, assignment abandoned")
		r.journalResult(assignment.AssignmentID, JournalAbandoned, models.KindOf(err), err.Error(), jobLogger)
		return
	}
	r.journalResult(assignment.AssignmentID, JournalSucceeded, "", "", jobLogger)
}

// reportFailure posts a terminal failure for a dispatched job. A run
// context killed mid-job reports cancellation on a short grace context
// so the API can reassign promptly instead of waiting out its lease.
func (r *Runtime) reportFailure(ctx context.Context, assignment *models.JobAssignment, dispatchErr error, elapsed time.Duration, jobLogger arbor.ILogger) {
	if ctx.Err() != nil {
		jobLogger.Warn().Msg("Job interrupted by shutdown, reporting cancellation")
		grace, cancel := context.WithTimeout(context.Background(), resultGraceTimeout)
		defer cancel()
		result := models.CancelledResult("worker shutting down")
		if err := r.api.SubmitResult(grace, assignment.AssignmentID, result); err != nil {
			jobLogger.Error().Err(err).Msg("Cancellation report failed")
		}
		r.journalResult(assignment.AssignmentID, JournalAbandoned, models.ErrKindTransient, "worker shutdown", jobLogger)
		return
	}

	kind := models.KindOf(dispatchErr)
	jobLogger.Error().Err(dispatchErr).
		Str("kind", string(kind)).
		Dur("elapsed", elapsed).
		Msg("Job failed")
	if kind.ReportedAs() == "internal" {
		sentry.CaptureException(dispatchErr)
	}

	result := models.FailedResult(kind, dispatchErr.Error())
	if err := r.api.SubmitResult(ctx, assignment.AssignmentID, result); err != nil {
		jobLogger.Error().Err(err).Msg("Result POST exhausted attempts, assignment abandoned")
		r.journalResult(assignment.AssignmentID, JournalAbandoned, kind, dispatchErr.Error(), jobLogger)
		return
	}
	r.journalResult(assignment.AssignmentID, JournalFailed, kind, dispatchErr.Error(), jobLogger)
}

func (r *Runtime) handlerContext(assignment *models.JobAssignment, jobLogger arbor.ILogger) *interfaces.HandlerContext {
	return &interfaces.HandlerContext{
		AssignmentID: assignment.AssignmentID,
		JobID:        assignment.JobID,
		StorageURI:   assignment.StorageURI,
		Region:       r.config.Storage.AWSRegion,
		S3Endpoint:   r.config.Storage.S3Endpoint,
		CachePath:    r.config.Storage.CachePath,
		DataPath:     r.config.Storage.DataPath,
		API:          r.api,
		Store:        r.store,
		Regional:     r.regional,
		Assessor:     r.assessor,
		Cache:        r.cache,
		Logger:       jobLogger,
	}
}

// Journal failures are logged and swallowed; the journal is forensic and
// never blocks job flow.
func (r *Runtime) journalClaim(assignment *models.JobAssignment, jobLogger arbor.ILogger) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordClaim(assignment); err != nil {
		jobLogger.Warn().Err(err).Msg("Journal claim record failed")
	}
}

func (r *Runtime) journalResult(assignmentID, status string, kind models.ErrorKind, message string, jobLogger arbor.ILogger) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordResult(assignmentID, status, string(kind), message); err != nil {
		jobLogger.Warn().Err(err).Msg("Journal result record failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
