// Package storage provides tenant-isolated artifact persistence with
// interchangeable backends. The backend is selected once at startup; the
// orchestrator and renderer never branch on which one is active.
package storage

import (
	"context"
	"fmt"
	"strings"

	"quote-orchestrator/internal/domain"
)

// Reader is the extra read capability the web layer uses to serve stored
// artifacts back over HTTP. It is deliberately kept off the orchestrator's
// ArtifactStore port.
type Reader interface {
	Get(ctx context.Context, tenantID, key string) ([]byte, error)
}

// validateKey rejects tenant ids and logical paths that could escape a
// tenant prefix. Keys use forward slashes; every segment must be a plain
// name.
func validateKey(tenantID, key string) error {
	if tenantID == "" || strings.ContainsAny(tenantID, "/\\") || tenantID == "." || tenantID == ".." {
		return fmt.Errorf("%w: bad tenant id %q", domain.ErrInvalidArgument, tenantID)
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: bad artifact key %q", domain.ErrInvalidArgument, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: bad artifact key %q", domain.ErrInvalidArgument, key)
		}
	}
	return nil
}

// storedKey is the tenant-prefixed physical key reported back to callers.
func storedKey(tenantID, key string) string {
	return tenantID + "/" + key
}
