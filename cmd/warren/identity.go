package main

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/store"
)

// loadOrGenerateIdentity returns the node's persisted identity, generating
// and persisting a new one on first run, grounded on
// original_source/src/db/identity.rs's Identity::get_or_generate.
func loadOrGenerateIdentity(ctx context.Context, identities store.IdentityStore, auditLog *audit.Log) (*identity.Identity, error) {
	rec, err := identities.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if rec != nil {
		return identity.FromKeys(
			ed25519.PublicKey(rec.SigningPublicKey),
			ed25519.PrivateKey(rec.SigningPrivateKey),
			rec.RecipientPublicKey,
			rec.RecipientPrivateKey,
		), nil
	}

	generated, err := identity.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	created, err := identities.CreateIfAbsent(ctx, &store.IdentityRecord{
		SigningPublicKey:    []byte(generated.SigningPublicKey),
		SigningPrivateKey:   []byte(generated.SigningPrivateKey),
		RecipientPublicKey:  generated.RecipientPublicKey,
		RecipientPrivateKey: generated.RecipientPrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("persist identity: %w", err)
	}

	if err := auditLog.Record(ctx, audit.EventIdentityGenerated, "generated new node identity", nil); err != nil {
		return nil, fmt.Errorf("record audit event: %w", err)
	}

	// A concurrent first run may have won the race to create the identity;
	// CreateIfAbsent returns whichever record actually stuck.
	return identity.FromKeys(
		ed25519.PublicKey(created.SigningPublicKey),
		ed25519.PrivateKey(created.SigningPrivateKey),
		created.RecipientPublicKey,
		created.RecipientPrivateKey,
	), nil
}
