package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/ports/adapter"
)

var (
	_ adapter.ArtifactStore = (*LocalStore)(nil)
	_ Reader                = (*LocalStore)(nil)
)

// LocalStore keeps artifacts on the local filesystem under per-tenant
// directories. Writes go through a temp file plus rename so overwrites by
// the same key are atomic.
type LocalStore struct {
	baseDir   string
	publicURL string
}

func NewLocalStore(baseDir, publicURL string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: storage base dir required", domain.ErrInvalidArgument)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStore) path(tenantID, key string) string {
	return filepath.Join(s.baseDir, tenantID, filepath.FromSlash(key))
}

func (s *LocalStore) Save(_ context.Context, tenantID, key string, data []byte) (string, error) {
	if err := validateKey(tenantID, key); err != nil {
		return "", err
	}
	dst := s.path(tenantID, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return storedKey(tenantID, key), nil
}

func (s *LocalStore) URL(_ context.Context, tenantID, key string) (string, error) {
	if err := validateKey(tenantID, key); err != nil {
		return "", err
	}
	return s.publicURL + "/artifacts/" + url.PathEscape(tenantID) + "/" + escapePath(key), nil
}

func (s *LocalStore) Exists(_ context.Context, tenantID, key string) (bool, error) {
	if err := validateKey(tenantID, key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(tenantID, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Delete(_ context.Context, tenantID, key string) (bool, error) {
	if err := validateKey(tenantID, key); err != nil {
		return false, err
	}
	err := os.Remove(s.path(tenantID, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Get(_ context.Context, tenantID, key string) ([]byte, error) {
	if err := validateKey(tenantID, key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(tenantID, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// escapePath escapes each key segment but keeps the slashes.
func escapePath(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
