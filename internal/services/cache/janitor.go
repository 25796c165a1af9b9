package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Janitor sweeps expired cache artifacts on a cron schedule. The cache
// contract makes deletion safe at any time, so the sweep only checks age.
type Janitor struct {
	cache    *DiskCache
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	logger   arbor.ILogger
	now      func() time.Time
}

// NewJanitor creates a janitor for the given cache. A zero maxAge
// disables sweeping entirely.
func NewJanitor(cache *DiskCache, schedule string, maxAge time.Duration, logger arbor.ILogger) *Janitor {
	return &Janitor{
		cache:    cache,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules the sweep. No-op when disabled.
func (j *Janitor) Start() error {
	if j.maxAge <= 0 {
		j.logger.Debug().Msg("Cache janitor disabled (max_age is zero)")
		return nil
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if removed, err := j.Sweep(); err != nil {
			j.logger.Warn().Err(err).Msg("Cache sweep failed")
		} else if removed > 0 {
			j.logger.Info().Int("removed", removed).Msg("Cache sweep removed expired artifacts")
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Str("schedule", j.schedule).Dur("max_age", j.maxAge).Msg("Cache janitor started")
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Sweep removes cache artifacts older than maxAge. In-progress temp files
// are skipped; the atomic rename discipline means a temp file either
// becomes an artifact or is cleaned up by its writer.
func (j *Janitor) Sweep() (int, error) {
	if j.maxAge <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(j.cache.Dir())
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.cache.Dir(), entry.Name())
		if err := j.cache.Remove(path); err != nil {
			j.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove expired artifact")
			continue
		}
		removed++
	}
	return removed, nil
}
