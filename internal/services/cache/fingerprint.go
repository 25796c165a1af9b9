// Package cache provides the content-addressed disk cache for assessment
// artifacts: deterministic parameter fingerprints, atomic artifact writes,
// and the scheduled janitor sweep.
package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ternarybob/scopulus/internal/models"
)

// Artifact kinds embedded in cache filenames.
const (
	KindRegionalAssessment = "regional_assessment"
	KindSuitableSites      = "suitable_sites"
)

// Fingerprint digests resolved regional parameters. The component order
// is canonical: region first, then each registry criterion present in the
// parameters. Semantically equal parameter sets digest byte-equal
// regardless of how the caller ordered its input, and the digest is
// stable across process restarts.
func Fingerprint(params *models.AssessmentParameters) string {
	components := []string{params.Region}
	components = appendCriteria(components, params.Criteria)
	return digest(components)
}

// SuitabilityFingerprint digests suitability parameters. The site-search
// fields contribute before the criteria block.
func SuitabilityFingerprint(params *models.SuitabilityParameters) string {
	components := []string{
		params.Region,
		formatFloat(params.Threshold),
		formatFloat(params.XDist),
		formatFloat(params.YDist),
	}
	components = appendCriteria(components, params.Criteria)
	return digest(components)
}

// appendCriteria emits id, min, max for each criterion present, in the
// registry's fixed sorted order. Absent criteria contribute nothing.
func appendCriteria(components []string, criteria map[string]models.Bounds) []string {
	for _, id := range models.CriteriaRegistry {
		bounds, ok := criteria[id]
		if !ok {
			continue
		}
		components = append(components, id, formatFloat(bounds.Min), formatFloat(bounds.Max))
	}
	return components
}

func digest(components []string) string {
	sum := xxhash.Sum64String(strings.Join(components, "|"))
	return strconv.FormatUint(sum, 10)
}

// formatFloat renders a bound with the shortest round-trip form so equal
// values always render identically.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
