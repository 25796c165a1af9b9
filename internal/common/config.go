// -----------------------------------------------------------------------
// Worker Configuration - Defaults -> TOML file -> environment overrides
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/scopulus/internal/models"
)

// Config represents the worker configuration. The environment contract is
// authoritative: every env variable overrides the corresponding file
// setting. TOML covers the settings the env contract never names (HTTP
// timeouts, janitor, journal, logging).
type Config struct {
	API       APIConfig     `toml:"api"`
	Worker    WorkerConfig  `toml:"worker"`
	Storage   StorageConfig `toml:"storage"`
	Janitor   JanitorConfig `toml:"janitor"`
	Journal   JournalConfig `toml:"journal"`
	Logging   LoggingConfig `toml:"logging"`
	SentryDSN string        `toml:"sentry_dsn"`
}

// APIConfig covers the job-dispatch API connection.
type APIConfig struct {
	Endpoint      string        `toml:"endpoint" validate:"required,url"`
	Username      string        `toml:"username" validate:"required"`
	Password      string        `toml:"password" validate:"required"`
	PollTimeout   time.Duration `toml:"poll_timeout"`   // per poll GET
	ResultTimeout time.Duration `toml:"result_timeout"` // per result POST
	RateLimit     int           `toml:"rate_limit"`     // client-side requests per second
}

// WorkerConfig covers the claim loop.
type WorkerConfig struct {
	JobTypes     []models.JobType `toml:"job_types" validate:"required,min=1"`
	PollInterval time.Duration    `toml:"poll_interval" validate:"gt=0"`
	IdleTimeout  time.Duration    `toml:"idle_timeout" validate:"gt=0"`
}

// StorageConfig covers local paths and the object store.
type StorageConfig struct {
	DataPath   string `toml:"data_path" validate:"required"`
	CachePath  string `toml:"cache_path" validate:"required"`
	AWSRegion  string `toml:"aws_region" validate:"required"`
	S3Endpoint string `toml:"s3_endpoint"` // optional MinIO-compatible override
}

// JanitorConfig covers the scheduled cache sweep. A zero MaxAge disables
// the janitor entirely.
type JanitorConfig struct {
	Schedule string        `toml:"schedule"` // cron format
	MaxAge   time.Duration `toml:"max_age"`
}

// JournalConfig covers the local assignment journal.
type JournalConfig struct {
	Enabled bool `toml:"enabled"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; the
// env contract and TOML file only override what operators need to touch.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			PollTimeout:   30 * time.Second,
			ResultTimeout: 60 * time.Second,
			RateLimit:     10,
		},
		Worker: WorkerConfig{
			PollInterval: 5 * time.Second,
			IdleTimeout:  10 * time.Minute,
		},
		Janitor: JanitorConfig{
			Schedule: "0 * * * *",    // hourly
			MaxAge:   168 * time.Hour, // one week
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path skips the file layer.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies the environment contract on top of whatever
// the file layer produced. Environment always wins.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("API_ENDPOINT"); v != "" {
		config.API.Endpoint = v
	}
	if v := os.Getenv("WORKER_USERNAME"); v != "" {
		config.API.Username = v
	}
	if v := os.Getenv("WORKER_PASSWORD"); v != "" {
		config.API.Password = v
	}
	if v := os.Getenv("JOB_TYPES"); v != "" {
		types, err := models.ParseJobTypes(v)
		if err != nil {
			return fmt.Errorf("JOB_TYPES: %w", err)
		}
		config.Worker.JobTypes = types
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		config.Storage.DataPath = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		config.Storage.CachePath = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Storage.AWSRegion = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		config.Storage.S3Endpoint = v
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("POLL_INTERVAL_MS: invalid value %q", v)
		}
		config.Worker.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("IDLE_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("IDLE_TIMEOUT_MS: invalid value %q", v)
		}
		config.Worker.IdleTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		config.SentryDSN = v
	}
	return nil
}

// Validate checks every required field is present and well formed. Errors
// name the environment variable so startup diagnostics point operators at
// the right knob.
func (c *Config) Validate() error {
	required := []struct {
		envName string
		value   string
	}{
		{"API_ENDPOINT", c.API.Endpoint},
		{"WORKER_USERNAME", c.API.Username},
		{"WORKER_PASSWORD", c.API.Password},
		{"DATA_PATH", c.Storage.DataPath},
		{"CACHE_PATH", c.Storage.CachePath},
		{"AWS_REGION", c.Storage.AWSRegion},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("missing required configuration: %s", field.envName)
		}
	}
	if len(c.Worker.JobTypes) == 0 {
		return fmt.Errorf("missing required configuration: JOB_TYPES")
	}
	for _, jt := range c.Worker.JobTypes {
		if !jt.IsValid() {
			return fmt.Errorf("JOB_TYPES: unknown job type %q", jt)
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
