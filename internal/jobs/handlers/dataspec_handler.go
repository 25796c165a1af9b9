package handlers

import (
	"context"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// DataSpecPath is the admin endpoint receiving the projected criteria.
const DataSpecPath = "/admin/data-specification"

// DataSpecHandler serves DATA_SPECIFICATION_UPDATE jobs: project the
// regional dataset into the admin payload and POST it through the
// authenticated client. The input's cache_buster is never interpreted;
// its presence already made the API treat the call as non-idempotent.
type DataSpecHandler struct{}

var _ interfaces.JobHandler = (*DataSpecHandler)(nil)

func NewDataSpecHandler() *DataSpecHandler {
	return &DataSpecHandler{}
}

func (h *DataSpecHandler) JobType() models.JobType {
	return models.JobTypeDataSpecificationUpdate
}

func (h *DataSpecHandler) Handle(ctx context.Context, input interfaces.JobInput, hctx *interfaces.HandlerContext) (interfaces.JobOutput, error) {
	data, err := hctx.Regional.Data(ctx)
	if err != nil {
		return nil, err
	}

	payload := models.BuildDataSpecification(data)
	if _, err := hctx.API.Post(ctx, DataSpecPath, payload, nil); err != nil {
		return nil, err
	}

	hctx.Logger.Info().Int("regions", len(payload.Regions)).Msg("Data specification updated")
	return &models.DataSpecificationUpdateOutput{}, nil
}
