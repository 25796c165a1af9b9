package assessment

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

const (
	// DefaultSuitabilityThreshold is the score cutoff applied when a
	// suitability job omits one.
	DefaultSuitabilityThreshold = 80.0

	// cellSizeDegrees is the raster resolution. Roughly 1km at the
	// equator.
	cellSizeDegrees = 0.01

	// maxGridCells caps raster dimensions so a continent-sized extent
	// cannot exhaust memory.
	maxGridCells = 4096

	// metersPerDegree approximates one degree of latitude.
	metersPerDegree = 111320.0
)

// Engine is the default Assessor. Its outputs are pure functions of the
// parameters and regional data: the criterion fields it samples are
// synthesized from a stable hash of the cell coordinates, so the same
// inputs always yield byte-identical artifacts.
type Engine struct {
	logger arbor.ILogger
}

var _ interfaces.Assessor = (*Engine)(nil)

// NewEngine creates the default assessment engine.
func NewEngine(logger arbor.ILogger) *Engine {
	return &Engine{logger: logger}
}

// DefaultThreshold implements the Assessor interface.
func (e *Engine) DefaultThreshold() float64 {
	return DefaultSuitabilityThreshold
}

// AssessRegion rasterizes the region extent and scores each cell by how
// many included criteria admit the cell's sampled value.
func (e *Engine) AssessRegion(ctx context.Context, params *models.AssessmentParameters, region *models.RegionData) (*models.RasterGrid, error) {
	if len(params.Criteria) == 0 {
		return nil, models.WorkerErrorf(models.ErrKindInvalidInput,
			"no criteria resolved for region %s", params.Region)
	}

	width, height := gridDimensions(region.Extent)
	grid := &models.RasterGrid{
		Width:  width,
		Height: height,
		Extent: region.Extent,
		Pixels: make([]byte, width*height),
	}

	// Fixed iteration order over criteria keeps scoring deterministic.
	ids := make([]string, 0, len(params.Criteria))
	for id := range params.Criteria {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for y := 0; y < height; y++ {
		if y%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		for x := 0; x < width; x++ {
			admitted := 0
			for _, id := range ids {
				bounds := params.Criteria[id]
				value := sampleCriterion(params.Region, id, x, y, bounds)
				if value >= bounds.Min && value <= bounds.Max {
					admitted++
				}
			}
			grid.Pixels[y*width+x] = byte(math.Round(float64(admitted) / float64(len(ids)) * 100))
		}
	}

	e.logger.Debug().
		Str("region", params.Region).
		Int("width", width).
		Int("height", height).
		Int("criteria", len(ids)).
		Msg("Regional raster computed")
	return grid, nil
}

// AssessSites slides a site-sized window across the scored raster and
// emits one candidate per window whose mean score is non-zero.
func (e *Engine) AssessSites(ctx context.Context, params *models.SuitabilityParameters, region *models.RegionData) ([]models.SiteCandidate, error) {
	grid, err := e.AssessRegion(ctx, &params.AssessmentParameters, region)
	if err != nil {
		return nil, err
	}

	cellsX := int(math.Max(1, math.Round(params.XDist/metersPerDegree/cellSizeDegrees)))
	cellsY := int(math.Max(1, math.Round(params.YDist/metersPerDegree/cellSizeDegrees)))
	if cellsX > grid.Width {
		cellsX = grid.Width
	}
	if cellsY > grid.Height {
		cellsY = grid.Height
	}

	lonPerCell := (grid.Extent.MaxLon - grid.Extent.MinLon) / float64(grid.Width)
	latPerCell := (grid.Extent.MaxLat - grid.Extent.MinLat) / float64(grid.Height)

	var sites []models.SiteCandidate
	for y := 0; y+cellsY <= grid.Height; y += cellsY {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for x := 0; x+cellsX <= grid.Width; x += cellsX {
			score := windowMean(grid, x, y, cellsX, cellsY)
			if score == 0 {
				continue
			}
			minLon := grid.Extent.MinLon + float64(x)*lonPerCell
			minLat := grid.Extent.MinLat + float64(y)*latPerCell
			maxLon := minLon + float64(cellsX)*lonPerCell
			maxLat := minLat + float64(cellsY)*latPerCell
			sites = append(sites, models.SiteCandidate{
				ID:    fmt.Sprintf("%s-%d-%d", params.Region, x, y),
				Score: score,
				Lon:   (minLon + maxLon) / 2,
				Lat:   (minLat + maxLat) / 2,
				Polygon: [][2]float64{
					{minLon, minLat},
					{maxLon, minLat},
					{maxLon, maxLat},
					{minLon, maxLat},
					{minLon, minLat},
				},
			})
		}
	}

	e.logger.Debug().
		Str("region", params.Region).
		Int("candidates", len(sites)).
		Msg("Site candidates computed")
	return sites, nil
}

// FilterSites drops candidates scoring below the threshold.
func (e *Engine) FilterSites(sites []models.SiteCandidate, params *models.SuitabilityParameters) []models.SiteCandidate {
	filtered := make([]models.SiteCandidate, 0, len(sites))
	for _, site := range sites {
		if site.Score >= params.Threshold {
			filtered = append(filtered, site)
		}
	}
	return filtered
}

// gridDimensions sizes the raster from the extent at the fixed cell
// resolution, capped per axis.
func gridDimensions(extent models.Extent) (int, int) {
	width := int(math.Ceil((extent.MaxLon - extent.MinLon) / cellSizeDegrees))
	height := int(math.Ceil((extent.MaxLat - extent.MinLat) / cellSizeDegrees))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width > maxGridCells {
		width = maxGridCells
	}
	if height > maxGridCells {
		height = maxGridCells
	}
	return width, height
}

// sampleCriterion synthesizes the criterion's field value at one cell.
// The hash seed includes region and criterion id so fields differ across
// criteria but never across runs.
func sampleCriterion(region, id string, x, y int, bounds models.Bounds) float64 {
	seed := fmt.Sprintf("%s|%s|%d|%d", region, id, x, y)
	sum := xxhash.Sum64String(seed)
	unit := float64(sum%10000) / 10000.0

	// Spread samples over twice the admissible span, centered on the
	// bounds, so roughly half of each field falls inside them.
	span := bounds.Max - bounds.Min
	if span == 0 {
		span = 1
	}
	return bounds.Min - span/2 + unit*span*2
}

func windowMean(grid *models.RasterGrid, x0, y0, w, h int) float64 {
	total := 0
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			total += int(grid.At(x, y))
		}
	}
	return float64(total) / float64(w*h)
}
