// Package pgstore implements store.Store over PostgreSQL via pgx, the
// persistent store collaborator's concrete binding (spec §6 "Persistent
// store collaborator"). The operator-supplied path becomes a connection
// DSN; schema migrations remain out of scope per spec.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warren-mesh/warren/pkg/store"
)

// Store is the concrete PostgreSQL-backed store.Store.
type Store struct {
	pool     *pgxpool.Pool
	identity *identityStore
	peers    *peerStore
	secrets  *secretStore
	audit    *auditStore
}

// Open connects to dsn, verifies the connection, and ensures the schema
// exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{
		pool:     pool,
		identity: &identityStore{db: pool},
		peers:    &peerStore{db: pool},
		secrets:  &secretStore{db: pool},
		audit:    &auditStore{db: pool},
	}, nil
}

func (s *Store) Identity() store.IdentityStore { return s.identity }
func (s *Store) Peers() store.PeerStore        { return s.peers }
func (s *Store) Secrets() store.SecretStore    { return s.secrets }
func (s *Store) Audit() store.AuditStore       { return s.audit }

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS identity (
	id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	signing_public_key BYTEA NOT NULL,
	signing_private_key BYTEA NOT NULL,
	recipient_public_key BYTEA NOT NULL,
	recipient_private_key BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS peers (
	node_id TEXT PRIMARY KEY,
	last_seen TIMESTAMPTZ,
	hostname TEXT NOT NULL DEFAULT '',
	recipient_key BYTEA,
	ticket TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS secrets (
	name TEXT NOT NULL,
	hash TEXT NOT NULL,
	target TEXT NOT NULL,
	ciphertext BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (name, hash, target)
);
CREATE INDEX IF NOT EXISTS secrets_target_idx ON secrets (target);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	message TEXT NOT NULL,
	data JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_created_at_idx ON audit_events (created_at);
`

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
