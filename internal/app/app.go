// -----------------------------------------------------------------------
// Application Wiring - Construct and connect every worker component
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/assessment"
	"github.com/ternarybob/scopulus/internal/common"
	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/jobs"
	"github.com/ternarybob/scopulus/internal/jobs/handlers"
	"github.com/ternarybob/scopulus/internal/services/api"
	"github.com/ternarybob/scopulus/internal/services/cache"
	"github.com/ternarybob/scopulus/internal/services/objectstore"
	"github.com/ternarybob/scopulus/internal/services/regional"
	"github.com/ternarybob/scopulus/internal/storage/badger"
	"github.com/ternarybob/scopulus/internal/worker"
)

// App holds every component of the worker and owns their lifecycles.
// Construction wires; Run drives the worker runtime; Close releases in
// reverse order.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	API      interfaces.APIClient
	Store    interfaces.ObjectStore
	Regional interfaces.RegionalProvider
	Assessor interfaces.Assessor
	Cache    *cache.DiskCache
	Janitor  *cache.Janitor
	Journal  interfaces.Journal
	Registry *jobs.Registry
	Runtime  *worker.Runtime
}

// New initializes the application with all dependencies. Dependency
// failures here are configuration or environment problems; main exits
// non-zero on any of them.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.API = api.NewClient(cfg.API.Endpoint, cfg.API.Username, cfg.API.Password,
		api.WithTimeouts(cfg.API.PollTimeout, cfg.API.ResultTimeout),
		api.WithRateLimit(cfg.API.RateLimit),
		api.WithLogger(logger),
	)

	store, err := objectstore.NewStore(ctx, cfg.Storage.AWSRegion, cfg.Storage.S3Endpoint, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	app.Store = store

	diskCache, err := cache.NewDiskCache(cfg.Storage.CachePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact cache: %w", err)
	}
	app.Cache = diskCache
	app.Janitor = cache.NewJanitor(diskCache, cfg.Janitor.Schedule, cfg.Janitor.MaxAge, logger)

	app.Regional = regional.NewProvider(cfg.Storage.DataPath, assessment.InitializeData, logger)
	app.Assessor = assessment.NewEngine(logger)

	if cfg.Journal.Enabled {
		// The journal lives beside the artifact cache so a single volume
		// mount covers both.
		db, err := badger.NewBadgerDB(logger, filepath.Join(cfg.Storage.CachePath, "journal"))
		if err != nil {
			return nil, fmt.Errorf("failed to open job journal: %w", err)
		}
		app.Journal = badger.NewJournalStorage(db, logger)
	}

	app.Registry = jobs.NewRegistry(logger)
	handlers.RegisterAll(app.Registry)

	app.Runtime = worker.NewRuntime(cfg, worker.Deps{
		API:      app.API,
		Registry: app.Registry,
		Store:    app.Store,
		Regional: app.Regional,
		Assessor: app.Assessor,
		Cache:    app.Cache,
		Journal:  app.Journal,
		Logger:   logger,
	})

	return app, nil
}

// Run starts the janitor and drives the worker runtime until it exits.
func (a *App) Run(ctx context.Context) error {
	if err := a.Janitor.Start(); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	// One sweep at startup so a worker recycled after a long gap does not
	// serve week-old artifacts until the first scheduled run.
	common.SafeGo(a.Logger, "initialCacheSweep", func() {
		if _, err := a.Janitor.Sweep(); err != nil {
			a.Logger.Warn().Err(err).Msg("Initial cache sweep failed")
		}
	})

	return a.Runtime.Run(ctx)
}

// Close releases application resources.
func (a *App) Close() {
	a.Janitor.Stop()
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Journal close failed")
		}
	}
	a.Logger.Info().Msg("Application closed")
}
