package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warren-mesh/warren/pkg/store"
)

type peerStore struct {
	db *pgxpool.Pool
}

// Upsert applies the same monotone-field-wins semantics as memstore, pushed
// down into the SQL statement via GREATEST and COALESCE-on-nonempty.
func (s *peerStore) Upsert(ctx context.Context, peer store.Peer) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO peers (node_id, last_seen, hostname, recipient_key, ticket)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (node_id) DO UPDATE SET
			last_seen = GREATEST(peers.last_seen, EXCLUDED.last_seen),
			hostname = CASE WHEN EXCLUDED.hostname <> '' THEN EXCLUDED.hostname ELSE peers.hostname END,
			recipient_key = CASE WHEN EXCLUDED.recipient_key IS NOT NULL AND length(EXCLUDED.recipient_key) > 0
				THEN EXCLUDED.recipient_key ELSE peers.recipient_key END,
			ticket = CASE WHEN EXCLUDED.ticket <> '' THEN EXCLUDED.ticket ELSE peers.ticket END`,
		peer.NodeID, peer.LastSeen, peer.Hostname, peer.RecipientKey, peer.Ticket)
	return err
}

func (s *peerStore) Get(ctx context.Context, nodeID string) (*store.Peer, error) {
	var peer store.Peer
	row := s.db.QueryRow(ctx, `
		SELECT node_id, last_seen, hostname, recipient_key, ticket FROM peers WHERE node_id = $1`, nodeID)
	if err := row.Scan(&peer.NodeID, &peer.LastSeen, &peer.Hostname, &peer.RecipientKey, &peer.Ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &peer, nil
}

func (s *peerStore) ScanAll(ctx context.Context) ([]store.Peer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT node_id, last_seen, hostname, recipient_key, ticket FROM peers ORDER BY node_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Peer
	for rows.Next() {
		var peer store.Peer
		if err := rows.Scan(&peer.NodeID, &peer.LastSeen, &peer.Hostname, &peer.RecipientKey, &peer.Ticket); err != nil {
			return nil, err
		}
		out = append(out, peer)
	}
	return out, rows.Err()
}

func (s *peerStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRow(ctx, `SELECT count(*) FROM peers`)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
