package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scopulus/internal/models"
)

func regionalParams(criteria map[string]models.Bounds) *models.AssessmentParameters {
	return &models.AssessmentParameters{Region: "GBR", Criteria: criteria}
}

func TestFingerprint_Deterministic(t *testing.T) {
	criteria := map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
		models.CriterionSlope: {Min: 0, Max: 40},
	}

	first := Fingerprint(regionalParams(criteria))
	second := Fingerprint(regionalParams(criteria))
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestFingerprint_OrderInvariant(t *testing.T) {
	// Maps are unordered, so build the two parameter sets through
	// different insertion orders to mirror differing wire payloads.
	a := map[string]models.Bounds{}
	a[models.CriterionDepth] = models.Bounds{Min: 5, Max: 30}
	a[models.CriterionTurbidity] = models.Bounds{Min: 0, Max: 1}
	a[models.CriterionWavesHs] = models.Bounds{Min: 0, Max: 2}

	b := map[string]models.Bounds{}
	b[models.CriterionWavesHs] = models.Bounds{Min: 0, Max: 2}
	b[models.CriterionTurbidity] = models.Bounds{Min: 0, Max: 1}
	b[models.CriterionDepth] = models.Bounds{Min: 5, Max: 30}

	assert.Equal(t, Fingerprint(regionalParams(a)), Fingerprint(regionalParams(b)))
}

func TestFingerprint_SensitiveToEveryComponent(t *testing.T) {
	base := regionalParams(map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
	})
	baseDigest := Fingerprint(base)

	otherRegion := &models.AssessmentParameters{Region: "MOZ", Criteria: base.Criteria}
	assert.NotEqual(t, baseDigest, Fingerprint(otherRegion))

	otherBounds := regionalParams(map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 31},
	})
	assert.NotEqual(t, baseDigest, Fingerprint(otherBounds))

	extraCriterion := regionalParams(map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
		models.CriterionTide:  {Min: 0, Max: 3},
	})
	assert.NotEqual(t, baseDigest, Fingerprint(extraCriterion))
}

func TestFingerprint_AbsentCriteriaContributeNothing(t *testing.T) {
	// An absent criterion and one never mentioned must digest the same.
	sparse := regionalParams(map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
	})
	same := regionalParams(map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
	})
	assert.Equal(t, Fingerprint(sparse), Fingerprint(same))
}

func TestSuitabilityFingerprint_IncludesSiteFields(t *testing.T) {
	criteria := map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
	}
	params := func(threshold, x, y float64) *models.SuitabilityParameters {
		return &models.SuitabilityParameters{
			AssessmentParameters: *regionalParams(criteria),
			Threshold:            threshold,
			XDist:                x,
			YDist:                y,
		}
	}

	base := SuitabilityFingerprint(params(80, 450, 20))
	assert.Equal(t, base, SuitabilityFingerprint(params(80, 450, 20)))
	assert.NotEqual(t, base, SuitabilityFingerprint(params(85, 450, 20)))
	assert.NotEqual(t, base, SuitabilityFingerprint(params(80, 451, 20)))
	assert.NotEqual(t, base, SuitabilityFingerprint(params(80, 450, 25)))
}

func TestSuitabilityFingerprint_DistinctFromRegional(t *testing.T) {
	criteria := map[string]models.Bounds{
		models.CriterionDepth: {Min: 5, Max: 30},
	}
	regional := Fingerprint(regionalParams(criteria))
	suitability := SuitabilityFingerprint(&models.SuitabilityParameters{
		AssessmentParameters: *regionalParams(criteria),
		Threshold:            80,
		XDist:                450,
		YDist:                20,
	})
	require.NotEqual(t, regional, suitability)
}

func TestFormatFloat_StableRendering(t *testing.T) {
	// Integral floats and their arithmetic equivalents must render the
	// same so equal parameters digest byte-equal.
	assert.Equal(t, formatFloat(30), formatFloat(15.0*2))
	assert.Equal(t, "5", formatFloat(5.0))
	assert.Equal(t, "0.5", formatFloat(0.5))
}
