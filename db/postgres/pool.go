// ABOUTME: PostgreSQL connection pool and schema for the multi-device document store
// ABOUTME: Documents live in a JSONB table whose trigger publishes changes with pg_notify
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel carries "namespace/collection" payloads for every document change.
const NotifyChannel = "clientbook_documents"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		namespace TEXT NOT NULL,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (namespace, collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(namespace, collection)`,
	`CREATE OR REPLACE FUNCTION clientbook_notify_change() RETURNS trigger AS $$
	DECLARE
		r RECORD;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			r := OLD;
		ELSE
			r := NEW;
		END IF;
		PERFORM pg_notify('` + NotifyChannel + `', r.namespace || '/' || r.collection);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS documents_notify_change ON documents`,
	`CREATE TRIGGER documents_notify_change
		AFTER INSERT OR UPDATE OR DELETE ON documents
		FOR EACH ROW EXECUTE FUNCTION clientbook_notify_change()`,
}

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool parses the DSN, applies pool settings, and pings the database.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// InitSchema creates the documents table and its change trigger.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
