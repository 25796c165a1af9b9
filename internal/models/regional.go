// -----------------------------------------------------------------------
// Regional Data - Read-mostly per-region criteria bounds and metadata
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"sort"
)

// CriteriaRegistry lists every criterion id the assessment stack
// understands, in the fixed sorted order used for parameter fingerprints.
// The order is load-bearing: fingerprints iterate this slice, so any two
// semantically equal parameter sets digest identically regardless of how
// the caller ordered its input.
var CriteriaRegistry = []string{
	CriterionDepth,
	CriterionRugosity,
	CriterionSlope,
	CriterionTide,
	CriterionTurbidity,
	CriterionWavesHs,
	CriterionWavesTp,
}

// Known criterion ids
const (
	CriterionDepth     = "depth"
	CriterionRugosity  = "rugosity"
	CriterionSlope     = "slope"
	CriterionTide      = "tide"
	CriterionTurbidity = "turbidity"
	CriterionWavesHs   = "waves_hs"
	CriterionWavesTp   = "waves_tp"
)

// KnownCriterion reports whether id is in the registry.
func KnownCriterion(id string) bool {
	i := sort.SearchStrings(CriteriaRegistry, id)
	return i < len(CriteriaRegistry) && CriteriaRegistry[i] == id
}

// Bounds is an admissible value range for one criterion.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Valid reports the min <= max invariant.
func (b Bounds) Valid() bool {
	return b.Min <= b.Max
}

// CriterionMetadata describes how a criterion is presented upstream.
type CriterionMetadata struct {
	ID           string `json:"id" yaml:"id"`
	DisplayTitle string `json:"display_title" yaml:"display_title"`
	Units        string `json:"units,omitempty" yaml:"units,omitempty"`
}

// BoundedCriterion is one criterion's admissible range in one region,
// plus its display metadata and optional default range. DefaultBounds is
// nil when the region supplies none; readers fall back to Bounds.
type BoundedCriterion struct {
	Metadata      CriterionMetadata `json:"metadata" yaml:"metadata"`
	Bounds        Bounds            `json:"bounds" yaml:"bounds"`
	DefaultBounds *Bounds           `json:"default_bounds,omitempty" yaml:"default_bounds,omitempty"`
}

// Defaults returns the criterion's default range, falling back to its
// current bounds when the region never set one.
func (c BoundedCriterion) Defaults() Bounds {
	if c.DefaultBounds != nil {
		return *c.DefaultBounds
	}
	return c.Bounds
}

// Extent is a geographic bounding box in degrees.
type Extent struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Valid reports whether the box is non-degenerate.
func (e Extent) Valid() bool {
	return e.MinLon < e.MaxLon && e.MinLat < e.MaxLat
}

// RegionData holds one region's extent and criteria.
type RegionData struct {
	Name        string                      `json:"name"`
	DisplayName string                      `json:"display_name"`
	Extent      Extent                      `json:"extent"`
	Criteria    map[string]BoundedCriterion `json:"criteria"`
}

// Criterion returns the region's entry for id, if any.
func (r *RegionData) Criterion(id string) (BoundedCriterion, bool) {
	c, ok := r.Criteria[id]
	return c, ok
}

// RegionalData is the full dataset loaded once at startup. Once
// materialized it is never mutated, so concurrent readers need no
// coordination.
type RegionalData struct {
	Regions map[string]*RegionData `json:"regions"`
}

// Region looks up a region by name. Missing regions are the caller's
// invalid-input case, so the error names the region.
func (d *RegionalData) Region(name string) (*RegionData, error) {
	r, ok := d.Regions[name]
	if !ok {
		return nil, WorkerErrorf(ErrKindInvalidInput, "unknown region %q", name)
	}
	return r, nil
}

// RegionNames returns all region names in sorted order.
func (d *RegionalData) RegionNames() []string {
	names := make([]string, 0, len(d.Regions))
	for name := range d.Regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks structural invariants after load.
func (d *RegionalData) Validate() error {
	if len(d.Regions) == 0 {
		return fmt.Errorf("regional data contains no regions")
	}
	for name, region := range d.Regions {
		if !region.Extent.Valid() {
			return fmt.Errorf("region %s: degenerate extent", name)
		}
		for id, criterion := range region.Criteria {
			if !KnownCriterion(id) {
				return fmt.Errorf("region %s: criterion %q not in registry", name, id)
			}
			if !criterion.Bounds.Valid() {
				return fmt.Errorf("region %s: criterion %s: min %g > max %g",
					name, id, criterion.Bounds.Min, criterion.Bounds.Max)
			}
			if criterion.DefaultBounds != nil && !criterion.DefaultBounds.Valid() {
				return fmt.Errorf("region %s: criterion %s: invalid default bounds", name, id)
			}
		}
	}
	return nil
}
