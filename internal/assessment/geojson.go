package assessment

import (
	"encoding/json"
	"io"

	"github.com/ternarybob/scopulus/internal/models"
)

// geoJSONFeature is one site rendered for the feature collection.
type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// WriteGeoJSON encodes filtered sites as a feature collection. When no
// site qualified the file contains a literal null, which downstream
// consumers treat as "assessed, nothing suitable".
func (e *Engine) WriteGeoJSON(w io.Writer, sites []models.SiteCandidate) error {
	if len(sites) == 0 {
		_, err := w.Write([]byte("null"))
		return err
	}

	collection := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(sites)),
	}
	for _, site := range sites {
		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Polygon",
				Coordinates: [][][2]float64{site.Polygon},
			},
			Properties: map[string]interface{}{
				"id":    site.ID,
				"score": site.Score,
				"lon":   site.Lon,
				"lat":   site.Lat,
			},
		})
	}
	return json.NewEncoder(w).Encode(collection)
}
