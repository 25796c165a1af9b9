package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// recordingHandler counts invocations and returns a canned output.
type recordingHandler struct {
	jobType models.JobType
	calls   int
	output  interfaces.JobOutput
	err     error
}

func (h *recordingHandler) JobType() models.JobType {
	return h.jobType
}

func (h *recordingHandler) Handle(ctx context.Context, input interfaces.JobInput, hctx *interfaces.HandlerContext) (interfaces.JobOutput, error) {
	h.calls++
	return h.output, h.err
}

func testContext() *interfaces.HandlerContext {
	return &interfaces.HandlerContext{Logger: arbor.NewLogger()}
}

func newTestRegistry() *Registry {
	return NewRegistry(arbor.NewLogger())
}

func TestDispatch_UnknownTypeNeverCallsHandler(t *testing.T) {
	registry := newTestRegistry()
	handler := &recordingHandler{jobType: models.JobTypeTest, output: &models.TestJobOutput{}}
	registry.Register(models.JobTypeTest, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.TestJobInput{} },
	})

	_, err := registry.Dispatch(context.Background(), models.JobTypeRegionalAssessment, nil, testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUnknownJobType, models.KindOf(err))
	assert.Equal(t, 0, handler.calls)
}

func TestDispatch_HappyPath(t *testing.T) {
	registry := newTestRegistry()
	handler := &recordingHandler{jobType: models.JobTypeTest, output: &models.TestJobOutput{}}
	registry.Register(models.JobTypeTest, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.TestJobInput{} },
	})

	output, err := registry.Dispatch(context.Background(), models.JobTypeTest,
		json.RawMessage(`{"id":42}`), testContext())
	require.NoError(t, err)
	assert.Equal(t, 1, handler.calls)
	assert.JSONEq(t, `{}`, string(output))
}

func TestDispatch_MalformedPayloadIsInvalidInput(t *testing.T) {
	registry := newTestRegistry()
	handler := &recordingHandler{jobType: models.JobTypeRegionalAssessment}
	registry.Register(models.JobTypeRegionalAssessment, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.RegionalAssessmentInput{} },
	})

	_, err := registry.Dispatch(context.Background(), models.JobTypeRegionalAssessment,
		json.RawMessage(`{"region":`), testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, models.KindOf(err))
	assert.Equal(t, 0, handler.calls)
}

func TestDispatch_SchemaFailureIsInvalidInput(t *testing.T) {
	registry := newTestRegistry()
	handler := &recordingHandler{jobType: models.JobTypeRegionalAssessment}
	registry.Register(models.JobTypeRegionalAssessment, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.RegionalAssessmentInput{} },
	})

	// Region is required by the input schema.
	_, err := registry.Dispatch(context.Background(), models.JobTypeRegionalAssessment,
		json.RawMessage(`{"reef_type":"slopes"}`), testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, models.KindOf(err))
	assert.Equal(t, 0, handler.calls)
}

func TestDispatch_InvalidOutputIsInternal(t *testing.T) {
	registry := newTestRegistry()
	// A regional output without cog_path fails its own schema.
	handler := &recordingHandler{
		jobType: models.JobTypeRegionalAssessment,
		output:  &models.RegionalAssessmentOutput{},
	}
	registry.Register(models.JobTypeRegionalAssessment, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.RegionalAssessmentInput{} },
	})

	_, err := registry.Dispatch(context.Background(), models.JobTypeRegionalAssessment,
		json.RawMessage(`{"region":"GBR"}`), testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInternal, models.KindOf(err))
	assert.Equal(t, 1, handler.calls)
}

func TestDispatch_HandlerErrorBubbles(t *testing.T) {
	registry := newTestRegistry()
	handler := &recordingHandler{
		jobType: models.JobTypeTest,
		err:     models.NewWorkerError(models.ErrKindTransient, "assessment backend unreachable"),
	}
	registry.Register(models.JobTypeTest, Capability{
		Handler:  handler,
		NewInput: func() interfaces.JobInput { return &models.TestJobInput{} },
	})

	_, err := registry.Dispatch(context.Background(), models.JobTypeTest, nil, testContext())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindTransient, models.KindOf(err))
}

func TestRegister_LastWriterWins(t *testing.T) {
	registry := newTestRegistry()
	first := &recordingHandler{jobType: models.JobTypeTest, output: &models.TestJobOutput{}}
	second := &recordingHandler{jobType: models.JobTypeTest, output: &models.TestJobOutput{}}

	capability := func(h interfaces.JobHandler) Capability {
		return Capability{Handler: h, NewInput: func() interfaces.JobInput { return &models.TestJobInput{} }}
	}
	registry.Register(models.JobTypeTest, capability(first))
	registry.Register(models.JobTypeTest, capability(second))

	_, err := registry.Dispatch(context.Background(), models.JobTypeTest, nil, testContext())
	require.NoError(t, err)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestTypes_ReturnsRegisteredInCanonicalOrder(t *testing.T) {
	registry := newTestRegistry()
	capability := Capability{
		Handler:  &recordingHandler{jobType: models.JobTypeTest, output: &models.TestJobOutput{}},
		NewInput: func() interfaces.JobInput { return &models.TestJobInput{} },
	}
	registry.Register(models.JobTypeDataSpecificationUpdate, capability)
	registry.Register(models.JobTypeTest, capability)

	assert.Equal(t, []models.JobType{models.JobTypeTest, models.JobTypeDataSpecificationUpdate}, registry.Types())
}
