package interfaces

import "io"

// ArtifactCache is the content-addressed disk cache for assessment
// artifacts. Paths embed the parameter fingerprint, so a file existing at
// a path is a valid artifact for that fingerprint and a hit is equivalent
// to recomputation.
type ArtifactCache interface {
	// ArtifactPath derives <dir>/<fingerprint>_<region>_<kind>.<ext>.
	ArtifactPath(fingerprint, region, kind, ext string) string

	// Exists reports whether a completed artifact is present.
	Exists(path string) bool

	// WriteAtomic writes through a temp file and renames into place, so
	// readers and racing writers never observe a truncated artifact.
	WriteAtomic(path string, write func(io.Writer) error) error

	// Remove deletes an artifact, tolerating absence.
	Remove(path string) error
}
