package interfaces

import (
	"context"
	"io"

	"github.com/ternarybob/scopulus/internal/models"
)

// Assessor is the boundary to the assessment routines. The worker treats
// these as opaque pure functions: same parameters, same artifact. The
// default engine lives in internal/assessment; tests substitute fakes.
type Assessor interface {
	// AssessRegion computes the suitability raster for resolved regional
	// parameters.
	AssessRegion(ctx context.Context, params *models.AssessmentParameters, region *models.RegionData) (*models.RasterGrid, error)

	// AssessSites computes candidate deployment sites for suitability
	// parameters.
	AssessSites(ctx context.Context, params *models.SuitabilityParameters, region *models.RegionData) ([]models.SiteCandidate, error)

	// FilterSites drops candidates scoring below the threshold.
	FilterSites(sites []models.SiteCandidate, params *models.SuitabilityParameters) []models.SiteCandidate

	// WriteCOG encodes a raster as a tiled Cloud-Optimized GeoTIFF.
	WriteCOG(w io.Writer, grid *models.RasterGrid) error

	// WriteGeoJSON encodes filtered sites as a feature collection, or a
	// literal null when no site qualified.
	WriteGeoJSON(w io.Writer, sites []models.SiteCandidate) error

	// DefaultThreshold is the suitability cutoff applied when a job
	// omits one.
	DefaultThreshold() float64
}
