package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores tokens in the session_tokens table. All rows written by
// one instance share a namespace.
type Postgres struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgres(pool *pgxpool.Pool, namespace string) *Postgres {
	if namespace == "" {
		namespace = "default"
	}
	return &Postgres{pool: pool, namespace: namespace}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM session_tokens WHERE namespace = $1 AND key = $2`,
		p.namespace, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session token: %w", err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO session_tokens (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		p.namespace, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM session_tokens WHERE namespace = $1 AND key = $2`, p.namespace, key)
	if err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

// CleanStale drops rows not touched since the cutoff.
func (p *Postgres) CleanStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM session_tokens WHERE namespace = $1 AND updated_at <= $2`,
		p.namespace, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("clean stale session tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
