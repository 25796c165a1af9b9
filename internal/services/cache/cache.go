package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scopulus/internal/interfaces"
)

// DiskCache is the content-addressed artifact cache. Filenames embed the
// parameter fingerprint, so a file existing at a derived path is a valid
// previously computed artifact and a hit is equivalent to recomputation.
// Concurrent workers racing on the same file write the same bytes.
type DiskCache struct {
	dir    string
	logger arbor.ILogger
}

var _ interfaces.ArtifactCache = (*DiskCache)(nil)

// NewDiskCache creates the cache rooted at dir, creating it when absent.
func NewDiskCache(dir string, logger arbor.ILogger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir, logger: logger}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	return c.dir
}

// ArtifactPath derives <dir>/<fingerprint>_<region>_<kind>.<ext>.
func (c *DiskCache) ArtifactPath(fingerprint, region, kind, ext string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_%s.%s", fingerprint, region, kind, ext))
}

// Exists reports whether a completed artifact is present at path.
func (c *DiskCache) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteAtomic streams the artifact through <path>.tmp and renames into
// place, so a reader never observes a truncated file even when two
// workers race on the same fingerprint.
func (c *DiskCache) WriteAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s into place: %w", tmp, err)
	}

	c.logger.Debug().Str("path", path).Msg("Cache artifact written")
	return nil
}

// Remove deletes an artifact, tolerating absence. Deletion is safe at any
// time; the next run recomputes.
func (c *DiskCache) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
