// Package regional owns the lazily loaded regional dataset.
package regional

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// LoadFunc materializes the dataset from the data directory. Production
// wires assessment.InitializeData; tests substitute fixtures.
type LoadFunc func(dataPath string) (*models.RegionalData, error)

// Provider memoizes the regional dataset in memory. The dataset is owned
// by the provider value rather than a package global, so independent
// workers (and tests) get independent slots. After the one-shot load,
// reads are lock-free from the caller's point of view: the data is never
// mutated.
type Provider struct {
	dataPath string
	load     LoadFunc
	logger   arbor.ILogger

	once sync.Once
	data *models.RegionalData
	err  error
}

var _ interfaces.RegionalProvider = (*Provider)(nil)

// NewProvider creates a provider over the given data directory.
func NewProvider(dataPath string, load LoadFunc, logger arbor.ILogger) *Provider {
	return &Provider{
		dataPath: dataPath,
		load:     load,
		logger:   logger,
	}
}

// Data returns the memoized dataset, loading it on first use. The load is
// expensive (the source files are large), which is why the runtime warms
// it during startup.
func (p *Provider) Data(ctx context.Context) (*models.RegionalData, error) {
	p.once.Do(func() {
		select {
		case <-ctx.Done():
			p.err = ctx.Err()
			return
		default:
		}

		start := time.Now()
		p.logger.Info().Str("data_path", p.dataPath).Msg("Loading regional data")
		p.data, p.err = p.load(p.dataPath)
		if p.err != nil {
			p.logger.Error().Err(p.err).Msg("Regional data load failed")
			return
		}
		p.logger.Info().
			Int("regions", len(p.data.Regions)).
			Dur("elapsed", time.Since(start)).
			Msg("Regional data loaded")
	})
	return p.data, p.err
}

// Warm forces the load during startup so the first claimed job does not
// pay the cost.
func (p *Provider) Warm(ctx context.Context) error {
	_, err := p.Data(ctx)
	return err
}
