package adapter

import "context"

// ArtifactStore persists generated documents under tenant-scoped keys.
// Implementations guarantee tenant-prefix isolation, immediate read-after-
// write consistency and idempotent overwrite by the same key. The concrete
// backend is chosen once at process start; callers never branch on it.
type ArtifactStore interface {
	// Save stores data under (tenantID, key) and returns the stored key.
	Save(ctx context.Context, tenantID, key string, data []byte) (string, error)

	// URL returns a public locator for a stored artifact.
	URL(ctx context.Context, tenantID, key string) (string, error)

	Exists(ctx context.Context, tenantID, key string) (bool, error)

	// Delete removes the artifact, reporting whether it existed.
	Delete(ctx context.Context, tenantID, key string) (bool, error)
}
