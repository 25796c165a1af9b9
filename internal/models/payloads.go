// -----------------------------------------------------------------------
// Job Payloads - Typed inputs and outputs for each job kind
//
// Inputs decode from the flat wire form the dispatch API sends
// (region, reef_type, <criterion>_min, <criterion>_max, ...) into a
// CriteriaMap keyed by criterion id, so nothing downstream enumerates
// per-criterion fields. All validation uses go-playground/validator tags.
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TestJobInput is the payload of a TEST job. The id is echoed in logs only.
type TestJobInput struct {
	ID *int64 `json:"id,omitempty"`
}

// Validate implements the input contract; TEST accepts anything.
func (in *TestJobInput) Validate() error {
	return nil
}

// TestJobOutput is empty; TEST exists for plumbing verification.
type TestJobOutput struct{}

func (out *TestJobOutput) Validate() error {
	return nil
}

// RegionalAssessmentInput selects a region and optional per-criterion
// bounds overrides.
type RegionalAssessmentInput struct {
	Region   string      `json:"region" validate:"required"`
	ReefType string      `json:"reef_type,omitempty"`
	Criteria CriteriaMap `json:"-"`
}

// UnmarshalJSON decodes the flat wire form. Criterion keys are recognized
// by their _min/_max suffix; a suffixed key whose id is not in the
// registry is rejected here rather than at merge time so the error names
// the offending field.
func (in *RegionalAssessmentInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["region"]; ok {
		if err := json.Unmarshal(v, &in.Region); err != nil {
			return fmt.Errorf("field region: %w", err)
		}
	}
	if v, ok := raw["reef_type"]; ok {
		if err := json.Unmarshal(v, &in.ReefType); err != nil {
			return fmt.Errorf("field reef_type: %w", err)
		}
	}
	criteria, err := decodeCriteriaFields(raw)
	if err != nil {
		return err
	}
	in.Criteria = criteria
	return nil
}

func (in *RegionalAssessmentInput) Validate() error {
	return validator.New().Struct(in)
}

// RegionalAssessmentOutput names the uploaded raster relative to the
// job's storage URI.
type RegionalAssessmentOutput struct {
	CogPath string `json:"cog_path" validate:"required"`
}

func (out *RegionalAssessmentOutput) Validate() error {
	return validator.New().Struct(out)
}

// SuitabilityAssessmentInput carries the regional selection plus the
// site-search fields. Threshold is optional; a null threshold takes the
// assessment default.
type SuitabilityAssessmentInput struct {
	Region    string      `json:"region" validate:"required"`
	ReefType  string      `json:"reef_type,omitempty"`
	Threshold *float64    `json:"threshold,omitempty"`
	XDist     float64     `json:"x_dist" validate:"gt=0"`
	YDist     float64     `json:"y_dist" validate:"gt=0"`
	Criteria  CriteriaMap `json:"-"`
}

func (in *SuitabilityAssessmentInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scalars := map[string]interface{}{
		"region":    &in.Region,
		"reef_type": &in.ReefType,
		"threshold": &in.Threshold,
		"x_dist":    &in.XDist,
		"y_dist":    &in.YDist,
	}
	for key, dst := range scalars {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	criteria, err := decodeCriteriaFields(raw)
	if err != nil {
		return err
	}
	in.Criteria = criteria
	return nil
}

func (in *SuitabilityAssessmentInput) Validate() error {
	return validator.New().Struct(in)
}

// SuitabilityAssessmentOutput names the uploaded site collection relative
// to the job's storage URI.
type SuitabilityAssessmentOutput struct {
	GeojsonPath string `json:"geojson_path" validate:"required"`
}

func (out *SuitabilityAssessmentOutput) Validate() error {
	return validator.New().Struct(out)
}

// DataSpecificationUpdateInput optionally carries a cache buster. The
// worker never interprets it; its presence makes the API treat the call
// as non-idempotent.
type DataSpecificationUpdateInput struct {
	CacheBuster json.RawMessage `json:"cache_buster,omitempty"`
}

func (in *DataSpecificationUpdateInput) Validate() error {
	return nil
}

// DataSpecificationUpdateOutput is empty; the update is its own effect.
type DataSpecificationUpdateOutput struct{}

func (out *DataSpecificationUpdateOutput) Validate() error {
	return nil
}

// decodeCriteriaFields collects <id>_min / <id>_max keys into a
// CriteriaMap. JSON null leaves the corresponding side nil, which the
// merge treats as inherit-from-region.
func decodeCriteriaFields(raw map[string]json.RawMessage) (CriteriaMap, error) {
	criteria := make(CriteriaMap)
	for key, value := range raw {
		var side string
		switch {
		case strings.HasSuffix(key, "_min"):
			side = "min"
		case strings.HasSuffix(key, "_max"):
			side = "max"
		default:
			continue
		}
		id := key[:len(key)-len("_min")]
		if !KnownCriterion(id) {
			return nil, WorkerErrorf(ErrKindInvalidInput, "unknown criterion %q", id)
		}
		var bound *float64
		if err := json.Unmarshal(value, &bound); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		override := criteria[id]
		if side == "min" {
			override.Min = bound
		} else {
			override.Max = bound
		}
		criteria[id] = override
	}
	if len(criteria) == 0 {
		return nil, nil
	}
	return criteria, nil
}

// DataSpecificationPayload is the body POSTed to /admin/data-specification.
type DataSpecificationPayload struct {
	Regions []RegionSpecification `json:"regions"`
}

// RegionSpecification projects one region's criteria for the API.
type RegionSpecification struct {
	Name        string                   `json:"name"`
	DisplayName string                   `json:"display_name"`
	Criteria    []CriterionSpecification `json:"criteria"`
}

// CriterionSpecification carries bounds, display metadata, and default
// bounds. Defaults fall back to the current bounds when the region never
// set any.
type CriterionSpecification struct {
	ID           string  `json:"id"`
	DisplayTitle string  `json:"display_title"`
	Units        string  `json:"units,omitempty"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	DefaultMin   float64 `json:"default_min"`
	DefaultMax   float64 `json:"default_max"`
}

// BuildDataSpecification projects regional data into the update payload.
// Output order is deterministic: regions sorted by name, criteria in
// registry order.
func BuildDataSpecification(data *RegionalData) *DataSpecificationPayload {
	payload := &DataSpecificationPayload{
		Regions: make([]RegionSpecification, 0, len(data.Regions)),
	}
	names := make([]string, 0, len(data.Regions))
	for name := range data.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		region := data.Regions[name]
		spec := RegionSpecification{
			Name:        region.Name,
			DisplayName: region.DisplayName,
			Criteria:    make([]CriterionSpecification, 0, len(region.Criteria)),
		}
		for _, id := range CriteriaRegistry {
			criterion, ok := region.Criterion(id)
			if !ok {
				continue
			}
			defaults := criterion.Defaults()
			spec.Criteria = append(spec.Criteria, CriterionSpecification{
				ID:           id,
				DisplayTitle: criterion.Metadata.DisplayTitle,
				Units:        criterion.Metadata.Units,
				Min:          criterion.Bounds.Min,
				Max:          criterion.Bounds.Max,
				DefaultMin:   defaults.Min,
				DefaultMax:   defaults.Max,
			})
		}
		payload.Regions = append(payload.Regions, spec)
	}
	return payload
}
