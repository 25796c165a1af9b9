// -----------------------------------------------------------------------
// Raster Grid and Site Candidates - Assessment artifact value types
// -----------------------------------------------------------------------

package models

import "fmt"

// RasterGrid is a single-band suitability raster over a region extent.
// Pixels are row-major, one byte per cell, 0-100 scores.
type RasterGrid struct {
	Width  int
	Height int
	Extent Extent
	Pixels []byte
}

// Validate checks the pixel buffer matches the declared dimensions.
func (g *RasterGrid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("raster dimensions must be positive, got %dx%d", g.Width, g.Height)
	}
	if len(g.Pixels) != g.Width*g.Height {
		return fmt.Errorf("raster has %d pixels, expected %d", len(g.Pixels), g.Width*g.Height)
	}
	return nil
}

// At returns the score at cell (x, y). Callers guarantee bounds.
func (g *RasterGrid) At(x, y int) byte {
	return g.Pixels[y*g.Width+x]
}

// SiteCandidate is one potential deployment site produced by the site
// assessment: a rectangular footprint with an aggregate suitability score.
type SiteCandidate struct {
	ID      string
	Score   float64
	Lon     float64
	Lat     float64
	Polygon [][2]float64
}
