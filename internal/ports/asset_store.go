package ports

import (
	"context"
	"io"

	"github.com/bft-labs/assetcdn/internal/domain"
)

// AssetStore provides read and publish access to assets under a single root.
// Paths are slash-separated and relative to the root. Implementations must
// refuse any path that resolves outside the root by returning domain.ErrNotFound.
type AssetStore interface {
	// Open returns a seekable handle and the metadata observed on that handle.
	// Returns domain.ErrNotFound if the asset is absent or is a directory.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, domain.Asset, error)

	// Stat returns asset metadata without opening the content.
	Stat(ctx context.Context, path string) (domain.Asset, error)

	// Create atomically publishes r at path. At most maxBytes are accepted.
	// Returns domain.ErrAlreadyExists if path is already published.
	// The asset is visible to Open as soon as Create returns.
	Create(ctx context.Context, path string, r io.Reader, maxBytes int64) (domain.Asset, error)

	// Remove unpublishes the asset at path. It is used to roll back a
	// partially written upload. Returns domain.ErrNotFound if path is absent.
	Remove(ctx context.Context, path string) error

	// List returns the assets below dir, sorted by path.
	List(ctx context.Context, dir string) ([]domain.Asset, error)
}
