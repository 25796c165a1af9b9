// -----------------------------------------------------------------------
// Scopulus - Reef assessment job worker
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scopulus/internal/app"
	"github.com/ternarybob/scopulus/internal/common"
	"github.com/ternarybob/scopulus/internal/models"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path (TOML)")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	common.LoadVersionFromFile()
	if *showVersion || *showVersionV {
		fmt.Printf("Scopulus version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("scopulus.toml"); err == nil {
			configPath = "scopulus.toml"
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Initialize logger
	// 3. Print banner
	var err error
	config, err = common.LoadFromFile(configPath)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())
	common.InstallCrashHandler("logs")
	defer common.RecoverWithCrashFile()

	if config.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     config.SentryDSN,
			Release: "scopulus@" + common.GetVersion(),
		}); err != nil {
			logger.Warn().Err(err).Msg("Sentry initialization failed, continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	logger.Info().
		Str("api_endpoint", config.API.Endpoint).
		Str("job_types", models.JobTypesCSV(config.Worker.JobTypes)).
		Str("cache_path", config.Storage.CachePath).
		Str("log_level", config.Logging.Level).
		Str("log_file", common.GetLogFilePath(logger)).
		Msg("Worker configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Worker exited with error")
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		application.Close()
		os.Exit(1)
	}

	logger.Info().Msg("Worker stopped")
}
