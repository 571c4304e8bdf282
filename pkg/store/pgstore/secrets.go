package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warren-mesh/warren/pkg/store"
)

type secretStore struct {
	db *pgxpool.Pool
}

// Upsert inserts the record, reporting changed=false when an existing row
// for (name, hash, target) already carries the same hash (spec §4.6
// hash-equality no-op).
func (s *secretStore) Upsert(ctx context.Context, rec store.SecretRecord) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	row := tx.QueryRow(ctx, `
		SELECT true FROM secrets WHERE name = $1 AND hash = $2 AND target = $3`,
		rec.Name, rec.Hash, rec.Target)
	if err := row.Scan(&exists); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO secrets (name, hash, target, ciphertext, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (name, hash, target) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext, updated_at = now()`,
		rec.Name, rec.Hash, rec.Target, rec.Ciphertext)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *secretStore) Delete(ctx context.Context, name, hash, target string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM secrets WHERE name = $1 AND hash = $2 AND target = $3`, name, hash, target)
	return err
}

func (s *secretStore) FindByNameHash(ctx context.Context, name, hash, target string) (*store.SecretRecord, error) {
	var rec store.SecretRecord
	row := s.db.QueryRow(ctx, `
		SELECT name, hash, target, ciphertext, created_at, updated_at
		FROM secrets WHERE name = $1 AND hash = $2 AND target = $3`, name, hash, target)
	if err := row.Scan(&rec.Name, &rec.Hash, &rec.Target, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *secretStore) ScanAll(ctx context.Context) ([]store.SecretRecord, error) {
	return s.scan(ctx, `
		SELECT name, hash, target, ciphertext, created_at, updated_at
		FROM secrets ORDER BY name, target, hash`)
}

func (s *secretStore) ScanByTarget(ctx context.Context, target string) ([]store.SecretRecord, error) {
	return s.scan(ctx, `
		SELECT name, hash, target, ciphertext, created_at, updated_at
		FROM secrets WHERE target = $1 ORDER BY name`, target)
}

func (s *secretStore) scan(ctx context.Context, query string, args ...any) ([]store.SecretRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SecretRecord
	for rows.Next() {
		var rec store.SecretRecord
		if err := rows.Scan(&rec.Name, &rec.Hash, &rec.Target, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *secretStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRow(ctx, `SELECT count(*) FROM secrets`)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *secretStore) GroupedByName(ctx context.Context) ([]store.SecretGroup, error) {
	all, err := s.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	return store.GroupRecordsByName(all), nil
}
