package handlers

import (
	"context"
	"io"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
	"github.com/ternarybob/scopulus/internal/services/cache"
	"github.com/ternarybob/scopulus/internal/services/objectstore"
)

// RegionalArtifactName is the fixed filename under the job's storage URI.
const RegionalArtifactName = "regional_assessment.tiff"

// RegionalHandler serves REGIONAL_ASSESSMENT jobs: resolve parameters,
// compute (or reuse) the suitability raster, upload the COG.
type RegionalHandler struct{}

var _ interfaces.JobHandler = (*RegionalHandler)(nil)

func NewRegionalHandler() *RegionalHandler {
	return &RegionalHandler{}
}

func (h *RegionalHandler) JobType() models.JobType {
	return models.JobTypeRegionalAssessment
}

func (h *RegionalHandler) Handle(ctx context.Context, input interfaces.JobInput, hctx *interfaces.HandlerContext) (interfaces.JobOutput, error) {
	in := input.(*models.RegionalAssessmentInput)

	params, region, err := resolveRegionalParams(ctx, hctx, in.Region, in.Criteria)
	if err != nil {
		return nil, err
	}

	fingerprint := cache.Fingerprint(params)
	path := hctx.Cache.ArtifactPath(fingerprint, params.Region, cache.KindRegionalAssessment, "tiff")

	if hctx.Cache.Exists(path) {
		// A file at the derived path is a valid artifact for this
		// fingerprint; a hit is equivalent to recomputation.
		hctx.Logger.Info().Str("path", path).Msg("Regional assessment cache hit")
	} else {
		grid, err := hctx.Assessor.AssessRegion(ctx, params, region)
		if err != nil {
			return nil, err
		}
		if err := hctx.Cache.WriteAtomic(path, func(w io.Writer) error {
			return hctx.Assessor.WriteCOG(w, grid)
		}); err != nil {
			return nil, err
		}
		hctx.Logger.Info().Str("path", path).Msg("Regional assessment computed")
	}

	target := objectstore.JoinURI(hctx.StorageURI, RegionalArtifactName)
	if err := hctx.Store.Upload(ctx, path, target); err != nil {
		return nil, err
	}
	hctx.Logger.Info().Str("target", target).Msg("Regional assessment uploaded")

	return &models.RegionalAssessmentOutput{CogPath: RegionalArtifactName}, nil
}

// resolveRegionalParams looks the region up and merges user criteria
// overrides with the regional defaults.
func resolveRegionalParams(ctx context.Context, hctx *interfaces.HandlerContext, regionName string, criteria models.CriteriaMap) (*models.AssessmentParameters, *models.RegionData, error) {
	data, err := hctx.Regional.Data(ctx)
	if err != nil {
		return nil, nil, err
	}
	region, err := data.Region(regionName)
	if err != nil {
		return nil, nil, err
	}
	params, err := models.BuildParameters(region, criteria)
	if err != nil {
		return nil, nil, err
	}
	return params, region, nil
}
