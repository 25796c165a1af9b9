package interfaces

import "context"

// ObjectStore uploads local artifacts to their storage URI. Transient
// failures are retried internally; exhaustion surfaces as an upload error.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, targetURI string) error
}
