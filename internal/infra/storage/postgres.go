package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/ports/adapter"
)

var (
	_ adapter.ArtifactStore = (*PostgresStore)(nil)
	_ Reader                = (*PostgresStore)(nil)
)

// PostgresStore keeps artifacts in an artifacts table, one row per
// (tenant_id, key). It is the remote backend for deployments without a
// shared filesystem; the web layer serves rows back under /artifacts/.
//
// Schema:
//
//	CREATE TABLE artifacts (
//	    tenant_id  TEXT NOT NULL,
//	    key        TEXT NOT NULL,
//	    data       BYTEA NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (tenant_id, key)
//	);
type PostgresStore struct {
	pool      *pgxpool.Pool
	publicURL string
}

func NewPostgresStore(pool *pgxpool.Pool, publicURL string) *PostgresStore {
	return &PostgresStore{pool: pool, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *PostgresStore) Save(ctx context.Context, tenantID, key string, data []byte) (string, error) {
	if err := validateKey(tenantID, key); err != nil {
		return "", err
	}
	const q = `
INSERT INTO artifacts (tenant_id, key, data, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, key) DO UPDATE SET
  data = EXCLUDED.data,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, q, tenantID, key, data, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return storedKey(tenantID, key), nil
}

func (s *PostgresStore) URL(_ context.Context, tenantID, key string) (string, error) {
	if err := validateKey(tenantID, key); err != nil {
		return "", err
	}
	return s.publicURL + "/artifacts/" + url.PathEscape(tenantID) + "/" + escapePath(key), nil
}

func (s *PostgresStore) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	if err := validateKey(tenantID, key); err != nil {
		return false, err
	}
	const q = `SELECT 1 FROM artifacts WHERE tenant_id = $1 AND key = $2;`
	var one int
	err := s.pool.QueryRow(ctx, q, tenantID, key).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID, key string) (bool, error) {
	if err := validateKey(tenantID, key); err != nil {
		return false, err
	}
	const q = `DELETE FROM artifacts WHERE tenant_id = $1 AND key = $2;`
	tag, err := s.pool.Exec(ctx, q, tenantID, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, key string) ([]byte, error) {
	if err := validateKey(tenantID, key); err != nil {
		return nil, err
	}
	const q = `SELECT data FROM artifacts WHERE tenant_id = $1 AND key = $2;`
	var data []byte
	err := s.pool.QueryRow(ctx, q, tenantID, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
