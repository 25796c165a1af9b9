// -----------------------------------------------------------------------
// Assessment Parameters - Bounds merging of user overrides with regional
// defaults. Suitability parameters are regional parameters plus three
// site-search fields; there is no recursion between the two.
// -----------------------------------------------------------------------

package models

// BoundsOverride carries optional user-supplied bounds for one criterion.
// A nil field inherits the regional default for that side.
type BoundsOverride struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Empty reports whether the override supplies neither side.
func (o BoundsOverride) Empty() bool {
	return o.Min == nil && o.Max == nil
}

// CriteriaMap is the flexible user-facing criteria form: criterion id to
// optional min/max overrides.
type CriteriaMap map[string]BoundsOverride

// AssessmentParameters is the fully resolved input to a regional
// assessment: every included criterion has both bounds present.
type AssessmentParameters struct {
	Region   string
	Criteria map[string]Bounds
}

// SuitabilityParameters extends regional parameters with the site-search
// fields. Threshold is resolved before this struct is built.
type SuitabilityParameters struct {
	AssessmentParameters
	Threshold float64
	XDist     float64
	YDist     float64
}

// BuildParameters resolves user criteria overrides against one region's
// data using the merge rule
//
//	merged.min = user_min ?? regional.min
//	merged.max = user_max ?? regional.max
//
// A criterion with no user values and no regional entry is omitted. A
// criterion the user supplied but the region lacks is invalid input; so is
// a criterion id outside the registry, or a merged range with min > max.
func BuildParameters(region *RegionData, user CriteriaMap) (*AssessmentParameters, error) {
	for id := range user {
		if !KnownCriterion(id) {
			return nil, WorkerErrorf(ErrKindInvalidInput, "unknown criterion %q", id)
		}
	}

	criteria := make(map[string]Bounds, len(region.Criteria))
	for _, id := range CriteriaRegistry {
		override, userHas := user[id]
		regional, regionHas := region.Criterion(id)

		if !regionHas {
			if userHas && !override.Empty() {
				return nil, WorkerErrorf(ErrKindInvalidInput,
					"criterion %q has no regional entry in %s", id, region.Name)
			}
			continue
		}

		merged := regional.Bounds
		if override.Min != nil {
			merged.Min = *override.Min
		}
		if override.Max != nil {
			merged.Max = *override.Max
		}
		if !merged.Valid() {
			return nil, WorkerErrorf(ErrKindInvalidInput,
				"criterion %q: min %g exceeds max %g", id, merged.Min, merged.Max)
		}
		criteria[id] = merged
	}

	return &AssessmentParameters{Region: region.Name, Criteria: criteria}, nil
}

// ExtendForSuitability layers the site-search fields onto resolved
// regional parameters.
func ExtendForSuitability(params *AssessmentParameters, threshold, xDist, yDist float64) (*SuitabilityParameters, error) {
	if xDist <= 0 || yDist <= 0 {
		return nil, WorkerErrorf(ErrKindInvalidInput,
			"site dimensions must be positive, got x_dist=%g y_dist=%g", xDist, yDist)
	}
	return &SuitabilityParameters{
		AssessmentParameters: *params,
		Threshold:            threshold,
		XDist:                xDist,
		YDist:                yDist,
	}, nil
}
