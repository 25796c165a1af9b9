// Package assessment is the default implementation of the assessment
// routines behind the Assessor interface: regional data loading, raster
// and site computation, and the COG / GeoJSON artifact writers.
package assessment

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scopulus/internal/models"
)

// ManifestName is the regional dataset manifest under DATA_PATH.
const ManifestName = "regions.yaml"

// manifest is the on-disk shape of regions.yaml.
type manifest struct {
	Regions []manifestRegion `yaml:"regions"`
}

type manifestRegion struct {
	Name        string                              `yaml:"name"`
	DisplayName string                              `yaml:"display_name"`
	Extent      models.Extent                       `yaml:"extent"`
	Criteria    map[string]manifestCriterion        `yaml:"criteria"`
}

type manifestCriterion struct {
	DisplayTitle  string         `yaml:"display_title"`
	Units         string         `yaml:"units"`
	Bounds        models.Bounds  `yaml:"bounds"`
	DefaultBounds *models.Bounds `yaml:"default_bounds"`
}

// InitializeData loads the regional dataset from <dataPath>/regions.yaml.
// Missing or invalid manifests are startup errors; the runtime warms this
// before entering the polling loop.
func InitializeData(dataPath string) (*models.RegionalData, error) {
	path := filepath.Join(dataPath, ManifestName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regional manifest %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse regional manifest %s: %w", path, err)
	}

	data := &models.RegionalData{Regions: make(map[string]*models.RegionData, len(m.Regions))}
	for _, region := range m.Regions {
		if region.Name == "" {
			return nil, fmt.Errorf("regional manifest %s: region with empty name", path)
		}
		if _, exists := data.Regions[region.Name]; exists {
			return nil, fmt.Errorf("regional manifest %s: duplicate region %q", path, region.Name)
		}

		criteria := make(map[string]models.BoundedCriterion, len(region.Criteria))
		for id, criterion := range region.Criteria {
			criteria[id] = models.BoundedCriterion{
				Metadata: models.CriterionMetadata{
					ID:           id,
					DisplayTitle: criterion.DisplayTitle,
					Units:        criterion.Units,
				},
				Bounds:        criterion.Bounds,
				DefaultBounds: criterion.DefaultBounds,
			}
		}
		data.Regions[region.Name] = &models.RegionData{
			Name:        region.Name,
			DisplayName: region.DisplayName,
			Extent:      region.Extent,
			Criteria:    criteria,
		}
	}

	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("regional manifest %s: %w", path, err)
	}
	return data, nil
}
