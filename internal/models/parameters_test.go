package models

import (
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func testRegion() *RegionData {
	return &RegionData{
		Name:        "GBR",
		DisplayName: "Great Barrier Reef",
		Extent:      Extent{MinLon: 142.0, MinLat: -24.0, MaxLon: 154.0, MaxLat: -10.0},
		Criteria: map[string]BoundedCriterion{
			CriterionDepth: {
				Metadata: CriterionMetadata{ID: CriterionDepth, DisplayTitle: "Depth", Units: "m"},
				Bounds:   Bounds{Min: 2.0, Max: 40.0},
			},
			CriterionSlope: {
				Metadata: CriterionMetadata{ID: CriterionSlope, DisplayTitle: "Slope", Units: "deg"},
				Bounds:   Bounds{Min: 0.0, Max: 30.0},
			},
			CriterionTurbidity: {
				Metadata:      CriterionMetadata{ID: CriterionTurbidity, DisplayTitle: "Turbidity"},
				Bounds:        Bounds{Min: 0.0, Max: 52.5},
				DefaultBounds: &Bounds{Min: 0.0, Max: 20.0},
			},
		},
	}
}

func TestBuildParameters(t *testing.T) {
	tests := []struct {
		name        string
		user        CriteriaMap
		expected    map[string]Bounds
		expectError bool
		errorMsg    string
	}{
		{
			name: "no overrides inherits all regional bounds",
			user: nil,
			expected: map[string]Bounds{
				CriterionDepth:     {Min: 2.0, Max: 40.0},
				CriterionSlope:     {Min: 0.0, Max: 30.0},
				CriterionTurbidity: {Min: 0.0, Max: 52.5},
			},
		},
		{
			name: "user min overrides regional min only",
			user: CriteriaMap{CriterionDepth: {Min: f64(5.0)}},
			expected: map[string]Bounds{
				CriterionDepth:     {Min: 5.0, Max: 40.0},
				CriterionSlope:     {Min: 0.0, Max: 30.0},
				CriterionTurbidity: {Min: 0.0, Max: 52.5},
			},
		},
		{
			name: "user overrides both sides",
			user: CriteriaMap{CriterionDepth: {Min: f64(5.0), Max: f64(30.0)}},
			expected: map[string]Bounds{
				CriterionDepth:     {Min: 5.0, Max: 30.0},
				CriterionSlope:     {Min: 0.0, Max: 30.0},
				CriterionTurbidity: {Min: 0.0, Max: 52.5},
			},
		},
		{
			name: "empty override with no regional entry is omitted",
			user: CriteriaMap{CriterionTide: {}},
			expected: map[string]Bounds{
				CriterionDepth:     {Min: 2.0, Max: 40.0},
				CriterionSlope:     {Min: 0.0, Max: 30.0},
				CriterionTurbidity: {Min: 0.0, Max: 52.5},
			},
		},
		{
			name:        "user values without regional entry rejected",
			user:        CriteriaMap{CriterionTide: {Min: f64(0.1)}},
			expectError: true,
			errorMsg:    "no regional entry",
		},
		{
			name:        "criterion outside registry rejected",
			user:        CriteriaMap{"coral_cover": {Min: f64(0.5)}},
			expectError: true,
			errorMsg:    "unknown criterion",
		},
		{
			name:        "inverted merged bounds rejected",
			user:        CriteriaMap{CriterionDepth: {Min: f64(50.0)}},
			expectError: true,
			errorMsg:    "exceeds max",
		},
	}

	region := testRegion()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := BuildParameters(region, tt.user)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got %+v", params)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error %q does not mention %q", err.Error(), tt.errorMsg)
				}
				if KindOf(err) != ErrKindInvalidInput {
					t.Errorf("expected invalid input kind, got %s", KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params.Region != "GBR" {
				t.Errorf("region: got %s", params.Region)
			}
			if len(params.Criteria) != len(tt.expected) {
				t.Fatalf("got %d criteria, expected %d", len(params.Criteria), len(tt.expected))
			}
			for id, bounds := range tt.expected {
				got, ok := params.Criteria[id]
				if !ok {
					t.Errorf("criterion %s missing", id)
					continue
				}
				if got != bounds {
					t.Errorf("criterion %s: got %+v, expected %+v", id, got, bounds)
				}
			}
		})
	}
}

func TestExtendForSuitability(t *testing.T) {
	region := testRegion()
	params, err := BuildParameters(region, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	suit, err := ExtendForSuitability(params, 80.0, 450.0, 20.0)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if suit.Threshold != 80.0 || suit.XDist != 450.0 || suit.YDist != 20.0 {
		t.Errorf("unexpected suitability fields: %+v", suit)
	}
	if len(suit.Criteria) != len(params.Criteria) {
		t.Errorf("criteria not carried over")
	}

	if _, err := ExtendForSuitability(params, 80.0, 0, 20.0); err == nil {
		t.Error("zero x_dist should be rejected")
	}
	if _, err := ExtendForSuitability(params, 80.0, 450.0, -1); err == nil {
		t.Error("negative y_dist should be rejected")
	}
}

func TestRegionLookup(t *testing.T) {
	data := &RegionalData{Regions: map[string]*RegionData{"GBR": testRegion()}}

	if _, err := data.Region("GBR"); err != nil {
		t.Fatalf("GBR should resolve: %v", err)
	}

	_, err := data.Region("Atlantis")
	if err == nil {
		t.Fatal("Atlantis should not resolve")
	}
	if !strings.Contains(err.Error(), "Atlantis") {
		t.Errorf("error %q does not mention the region", err.Error())
	}
	if KindOf(err) != ErrKindInvalidInput {
		t.Errorf("expected invalid input kind, got %s", KindOf(err))
	}
}
