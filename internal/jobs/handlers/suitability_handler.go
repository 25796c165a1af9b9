package handlers

import (
	"context"
	"io"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
	"github.com/ternarybob/scopulus/internal/services/cache"
	"github.com/ternarybob/scopulus/internal/services/objectstore"
)

// SuitabilityArtifactName is the fixed filename under the job's storage URI.
const SuitabilityArtifactName = "suitable.geojson"

// SuitabilityHandler serves SUITABILITY_ASSESSMENT jobs. Suitability
// parameters are regional parameters plus the three site-search fields;
// the handler builds the regional set first and extends it.
type SuitabilityHandler struct{}

var _ interfaces.JobHandler = (*SuitabilityHandler)(nil)

func NewSuitabilityHandler() *SuitabilityHandler {
	return &SuitabilityHandler{}
}

func (h *SuitabilityHandler) JobType() models.JobType {
	return models.JobTypeSuitabilityAssessment
}

func (h *SuitabilityHandler) Handle(ctx context.Context, input interfaces.JobInput, hctx *interfaces.HandlerContext) (interfaces.JobOutput, error) {
	in := input.(*models.SuitabilityAssessmentInput)

	regionalParams, region, err := resolveRegionalParams(ctx, hctx, in.Region, in.Criteria)
	if err != nil {
		return nil, err
	}

	threshold := hctx.Assessor.DefaultThreshold()
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	params, err := models.ExtendForSuitability(regionalParams, threshold, in.XDist, in.YDist)
	if err != nil {
		return nil, err
	}

	fingerprint := cache.SuitabilityFingerprint(params)
	path := hctx.Cache.ArtifactPath(fingerprint, params.Region, cache.KindSuitableSites, "geojson")

	if hctx.Cache.Exists(path) {
		hctx.Logger.Info().Str("path", path).Msg("Suitability assessment cache hit")
	} else {
		sites, err := hctx.Assessor.AssessSites(ctx, params, region)
		if err != nil {
			return nil, err
		}
		filtered := hctx.Assessor.FilterSites(sites, params)
		if err := hctx.Cache.WriteAtomic(path, func(w io.Writer) error {
			return hctx.Assessor.WriteGeoJSON(w, filtered)
		}); err != nil {
			return nil, err
		}
		hctx.Logger.Info().
			Str("path", path).
			Int("candidates", len(sites)).
			Int("suitable", len(filtered)).
			Msg("Suitability assessment computed")
	}

	target := objectstore.JoinURI(hctx.StorageURI, SuitabilityArtifactName)
	if err := hctx.Store.Upload(ctx, path, target); err != nil {
		return nil, err
	}
	hctx.Logger.Info().Str("target", target).Msg("Suitability assessment uploaded")

	return &models.SuitabilityAssessmentOutput{GeojsonPath: SuitabilityArtifactName}, nil
}
