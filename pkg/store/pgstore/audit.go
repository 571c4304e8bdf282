package pgstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warren-mesh/warren/pkg/store"
)

type auditStore struct {
	db *pgxpool.Pool
}

func (s *auditStore) Record(ctx context.Context, event store.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_events (id, event_type, message, data, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		event.ID, event.Type, event.Message, event.Data)
	return err
}

func (s *auditStore) List(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, event_type, message, data, created_at
		FROM audit_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.AuditEvent
	for rows.Next() {
		var e store.AuditEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	// List returns most-recent-first from SQL; reverse to match memstore's
	// oldest-first ordering so callers see one consistent contract.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
