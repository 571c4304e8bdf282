package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warren-mesh/warren/pkg/store"
)

type identityStore struct {
	db *pgxpool.Pool
}

func (s *identityStore) Get(ctx context.Context) (*store.IdentityRecord, error) {
	var rec store.IdentityRecord
	row := s.db.QueryRow(ctx, `
		SELECT signing_public_key, signing_private_key, recipient_public_key, recipient_private_key
		FROM identity WHERE id = 1`)

	var recipPub, recipPriv []byte
	if err := row.Scan(&rec.SigningPublicKey, &rec.SigningPrivateKey, &recipPub, &recipPriv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	copy(rec.RecipientPublicKey[:], recipPub)
	copy(rec.RecipientPrivateKey[:], recipPriv)
	return &rec, nil
}

func (s *identityStore) CreateIfAbsent(ctx context.Context, rec *store.IdentityRecord) (*store.IdentityRecord, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO identity (id, signing_public_key, signing_private_key, recipient_public_key, recipient_private_key)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		[]byte(rec.SigningPublicKey), []byte(rec.SigningPrivateKey), rec.RecipientPublicKey[:], rec.RecipientPrivateKey[:])
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return existing, nil
}
