// Package credsync implements the credential sync actor (spec §4.7),
// grounded on original_source/src/actors/systemd_secrets.rs: it decrypts a
// replicated secret targeted at this node and writes the plaintext to the
// OS credential store via pkg/credstore. Subscribed only to the
// replication actor (never directly to the receiver), matching the
// original's registry::where_is("systemd") cast.
package credsync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/actor"
	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/cryptutil"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/store"
)

// credentialWriter is the narrow part of credstore.Store this package
// depends on.
type credentialWriter interface {
	Write(ctx context.Context, name string, content []byte) error
}

type requestKind int

const (
	kindSecret requestKind = iota
	kindAll
)

type syncRequest struct {
	kind       requestKind
	name       string
	ciphertext []byte
}

// Actor is the credential sync actor: a mailbox of sync requests addressed
// by the replication actor, drained on its own goroutine so a slow or
// unavailable OS credential store only back-pressures this actor.
type Actor struct {
	mailbox     *actor.Mailbox[syncRequest]
	credentials credentialWriter
	identity    *identity.Identity
	secrets     store.SecretStore
	auditLog    *audit.Log
	log         *logrus.Entry
}

// New creates a credential sync actor writing decrypted secrets through
// credentials.
func New(credentials credentialWriter, id *identity.Identity, secrets store.SecretStore, auditLog *audit.Log) *Actor {
	return &Actor{
		mailbox:     actor.NewMailbox[syncRequest](0),
		credentials: credentials,
		identity:    id,
		secrets:     secrets,
		auditLog:    auditLog,
		log:         logrus.WithField("actor", "credsync"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "credsync" }

// Run drains the mailbox until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case req := <-a.mailbox.Receive():
			a.handle(ctx, req)
		case <-ctx.Done():
			return nil
		}
	}
}

// SyncSecret addresses this actor with a single decrypt-and-write request,
// fire-and-forget (spec §4.7 "SyncSecret").
func (a *Actor) SyncSecret(ctx context.Context, name string, ciphertext []byte) error {
	return a.mailbox.Send(ctx, syncRequest{kind: kindSecret, name: name, ciphertext: ciphertext})
}

// SyncAllSecrets addresses this actor with a full resync request (spec §4.7
// "SyncAllSecrets").
func (a *Actor) SyncAllSecrets(ctx context.Context) error {
	return a.mailbox.Send(ctx, syncRequest{kind: kindAll})
}

func (a *Actor) handle(ctx context.Context, req syncRequest) {
	switch req.kind {
	case kindSecret:
		a.syncOne(ctx, req.name, req.ciphertext)
	case kindAll:
		a.syncAll(ctx)
	}
}

func (a *Actor) syncOne(ctx context.Context, name string, ciphertext []byte) {
	plaintext, err := cryptutil.Decrypt(a.identity.RecipientPrivateKey, ciphertext)
	if err != nil {
		a.log.WithError(err).WithField("name", name).Warn("failed to decrypt secret for credential sync")
		a.recordFailure(ctx, name, err)
		return
	}

	if err := a.credentials.Write(ctx, name, plaintext); err != nil {
		a.log.WithError(err).WithField("name", name).Warn("failed to write credential")
		a.recordFailure(ctx, name, err)
		return
	}

	if err := a.auditLog.Record(ctx, audit.EventCredentialWritten, fmt.Sprintf("wrote credential %q", name), map[string]string{"name": name}); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}
}

func (a *Actor) recordFailure(ctx context.Context, name string, cause error) {
	if err := a.auditLog.Record(ctx, audit.EventCredentialFailed, fmt.Sprintf("failed to sync credential %q", name), map[string]string{
		"name":  name,
		"error": cause.Error(),
	}); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}
}

// syncAll iterates every record targeted at this node and performs syncOne
// for each, logging an aggregate success/failure count.
func (a *Actor) syncAll(ctx context.Context) {
	recs, err := a.secrets.ScanByTarget(ctx, a.identity.NodeID())
	if err != nil {
		a.log.WithError(err).Warn("failed to scan local secrets for full resync")
		return
	}

	succeeded, failed := 0, 0
	for _, rec := range recs {
		plaintext, err := cryptutil.Decrypt(a.identity.RecipientPrivateKey, rec.Ciphertext)
		if err != nil {
			failed++
			a.recordFailure(ctx, rec.Name, err)
			continue
		}
		if err := a.credentials.Write(ctx, rec.Name, plaintext); err != nil {
			failed++
			a.recordFailure(ctx, rec.Name, err)
			continue
		}
		succeeded++
	}

	a.log.WithFields(logrus.Fields{"succeeded": succeeded, "failed": failed}).Info("full credential resync complete")
}
