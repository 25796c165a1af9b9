package regional

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/models"
)

func fixtureData() *models.RegionalData {
	return &models.RegionalData{
		Regions: map[string]*models.RegionData{
			"GBR": {
				Name:   "GBR",
				Extent: models.Extent{MinLon: 145, MinLat: -19, MaxLon: 146, MaxLat: -18},
				Criteria: map[string]models.BoundedCriterion{
					models.CriterionDepth: {
						Metadata: models.CriterionMetadata{ID: models.CriterionDepth, DisplayTitle: "Depth"},
						Bounds:   models.Bounds{Min: 5, Max: 30},
					},
				},
			},
		},
	}
}

func TestProvider_LoadsExactlyOnce(t *testing.T) {
	var loads int64
	provider := NewProvider("/data", func(dataPath string) (*models.RegionalData, error) {
		atomic.AddInt64(&loads, 1)
		assert.Equal(t, "/data", dataPath)
		return fixtureData(), nil
	}, arbor.NewLogger())

	ctx := context.Background()
	first, err := provider.Data(ctx)
	require.NoError(t, err)
	second, err := provider.Data(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&loads))
}

func TestProvider_ConcurrentReadersShareOneLoad(t *testing.T) {
	var loads int64
	provider := NewProvider("/data", func(string) (*models.RegionalData, error) {
		atomic.AddInt64(&loads, 1)
		return fixtureData(), nil
	}, arbor.NewLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := provider.Data(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, data)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&loads))
}

func TestProvider_WarmSurfacesLoadError(t *testing.T) {
	provider := NewProvider("/data", func(string) (*models.RegionalData, error) {
		return nil, fmt.Errorf("manifest missing")
	}, arbor.NewLogger())

	err := provider.Warm(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest missing")
}
