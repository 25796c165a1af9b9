package interfaces

import (
	"context"

	"github.com/ternarybob/scopulus/internal/models"
)

// RegionalProvider owns the lazily loaded regional dataset. The first
// call pays the load cost; the runtime warms it during startup so no
// claimed job does.
type RegionalProvider interface {
	// Data returns the memoized dataset, loading it on first use.
	Data(ctx context.Context) (*models.RegionalData, error)

	// Warm forces the load during startup. Equivalent to a discarded
	// Data call; named so startup code reads as intent.
	Warm(ctx context.Context) error
}
