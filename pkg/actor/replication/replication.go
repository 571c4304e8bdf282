// Package replication implements the secret-replication actor, the protocol
// core per spec §4.6. It subscribes to the receiver for Secret,
// SecretDelete, SecretSyncRequest, Joined, and Introduction messages, and
// exposes the local create/delete write path (CreateSecret, DeleteSecret);
// no cmd/warren command calls that path. Grounded
// on original_source/src/actors/gossip/listener.rs, the richest source file
// for this spec.
package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/actor/receiver"
	"github.com/warren-mesh/warren/pkg/apperr"
	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/cryptutil"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/wire"
)

// Syncer is the credential sync actor's narrow interface, addressed
// fire-and-forget whenever a secret targeted at this node changes or a
// resync is requested (spec §4.6 step 3, §4.7).
type Syncer interface {
	SyncSecret(ctx context.Context, name string, ciphertext []byte) error
	SyncAllSecrets(ctx context.Context) error
}

// messageSender is the narrow part of sender.Actor this package depends on.
type messageSender interface {
	Send(ctx context.Context, msg wire.PeerMessage) error
}

// Actor is the replication actor.
type Actor struct {
	receiver.Inbox
	identity *identity.Identity
	secrets  store.SecretStore
	peers    store.PeerStore
	sender   messageSender
	syncer   Syncer
	auditLog *audit.Log
	log      *logrus.Entry
}

// New creates a replication actor.
func New(id *identity.Identity, secrets store.SecretStore, peers store.PeerStore, snd messageSender, syncer Syncer, auditLog *audit.Log) *Actor {
	return &Actor{
		Inbox:    receiver.NewInbox(0),
		identity: id,
		secrets:  secrets,
		peers:    peers,
		sender:   snd,
		syncer:   syncer,
		auditLog: auditLog,
		log:      logrus.WithField("actor", "replication"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "replication" }

// Run drains the subscription inbox until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-a.Events():
			a.handle(ctx, ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Actor) handle(ctx context.Context, ev receiver.Event) {
	if ev.Kind != receiver.EventMessage {
		return
	}

	switch ev.Message.Type {
	case wire.TypeJoined, wire.TypeIntroduction:
		a.pushSecretsToNewcomer(ctx, ev.From)
	case wire.TypeSecret:
		a.handleSecret(ctx, ev.From, ev.Message)
	case wire.TypeSecretDelete:
		a.handleSecretDelete(ctx, ev.From, ev.Message)
	case wire.TypeSecretSyncRequest:
		a.handleSyncRequest(ctx, ev.Message)
	}
}

// pushSecretsToNewcomer implements the §4.6 full-state push, restricted to
// records whose target is the announcing peer (the Open Question #2
// resolution documented in DESIGN.md), rather than the original's push of
// every locally-known secret to every newcomer.
func (a *Actor) pushSecretsToNewcomer(ctx context.Context, newcomer string) {
	recs, err := a.secrets.ScanByTarget(ctx, newcomer)
	if err != nil {
		a.log.WithError(err).WithField("node_id", newcomer).Warn("failed to scan secrets for newcomer")
		return
	}

	now := time.Now().Unix()
	for _, rec := range recs {
		msg := wire.Secret(rec.Name, rec.Ciphertext, rec.Hash, rec.Target, now)
		if err := a.sender.Send(ctx, msg); err != nil {
			a.log.WithError(err).WithField("name", rec.Name).Warn("failed to queue secret for newcomer")
		}
	}
}

func (a *Actor) handleSecret(ctx context.Context, from string, msg wire.PeerMessage) {
	rec := store.SecretRecord{
		Name:       msg.Name,
		Hash:       msg.Hash,
		Target:     msg.TargetNodeID,
		Ciphertext: msg.Ciphertext,
	}

	changed, err := a.secrets.Upsert(ctx, rec)
	if err != nil {
		a.log.WithError(err).WithField("name", msg.Name).Warn("failed to store replicated secret")
		return
	}
	if !changed {
		return
	}

	if err := a.auditLog.Record(ctx, audit.EventSecretReplicated, fmt.Sprintf("replicated secret %q", msg.Name), map[string]string{
		"name":   msg.Name,
		"target": msg.TargetNodeID,
		"hash":   msg.Hash,
		"from":   from,
	}); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}

	if msg.TargetNodeID != a.identity.NodeID() {
		return
	}
	if err := a.syncer.SyncSecret(ctx, msg.Name, msg.Ciphertext); err != nil {
		a.log.WithError(err).WithField("name", msg.Name).Warn("failed to queue credential sync")
	}
}

func (a *Actor) handleSecretDelete(ctx context.Context, from string, msg wire.PeerMessage) {
	if from != msg.TargetNodeID {
		a.log.WithFields(logrus.Fields{"from": from, "target": msg.TargetNodeID, "name": msg.Name}).
			Warn("dropping secret deletion not signed by its target")
		return
	}

	if err := a.secrets.Delete(ctx, msg.Name, msg.Hash, msg.TargetNodeID); err != nil {
		a.log.WithError(err).WithField("name", msg.Name).Warn("failed to delete replicated secret")
		return
	}

	if err := a.auditLog.Record(ctx, audit.EventSecretDeleted, fmt.Sprintf("deleted secret %q", msg.Name), map[string]string{
		"name":   msg.Name,
		"target": msg.TargetNodeID,
		"hash":   msg.Hash,
	}); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}
}

func (a *Actor) handleSyncRequest(ctx context.Context, msg wire.PeerMessage) {
	if msg.NodeID != a.identity.NodeID() {
		return
	}
	if err := a.syncer.SyncAllSecrets(ctx); err != nil {
		a.log.WithError(err).Warn("failed to queue full credential resync")
	}
}

// CreateSecret is the local-write path (spec §4.6 "Create secret"): it
// encrypts cleartext to every target's recipient key, persists each record
// locally, and broadcasts a Secret message per target. If any target lacks
// a known recipient key the whole create fails before anything is written.
func (a *Actor) CreateSecret(ctx context.Context, name, cleartext string, targets []string) error {
	name = identity.NormalizeName(name)
	if len(targets) == 0 {
		return apperr.New(apperr.InvalidInput, "create secret requires at least one target")
	}

	recipientKeys := make(map[string][]byte, len(targets))
	for _, target := range targets {
		peer, err := a.peers.Get(ctx, target)
		if err != nil {
			return apperr.Wrap(apperr.StoreError, "look up target peer", err)
		}
		if peer == nil || len(peer.RecipientKey) == 0 {
			return apperr.New(apperr.InvalidInput, fmt.Sprintf("target %q has no known recipient key", target))
		}
		recipientKeys[target] = peer.RecipientKey
	}

	hash := cryptutil.Hash(cleartext)
	now := time.Now().Unix()

	for target, recipPub := range recipientKeys {
		var pub [32]byte
		copy(pub[:], recipPub)

		ciphertext, err := cryptutil.Encrypt(pub, []byte(cleartext))
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, "encrypt secret", err)
		}

		if _, err := a.secrets.Upsert(ctx, store.SecretRecord{
			Name:       name,
			Hash:       hash,
			Target:     target,
			Ciphertext: ciphertext,
		}); err != nil {
			return apperr.Wrap(apperr.StoreError, "persist secret", err)
		}

		msg := wire.Secret(name, ciphertext, hash, target, now)
		if err := a.sender.Send(ctx, msg); err != nil {
			a.log.WithError(err).WithField("name", name).Warn("failed to queue secret broadcast")
		}
	}

	if err := a.auditLog.Record(ctx, audit.EventSecretReplicated, fmt.Sprintf("created secret %q for %d target(s)", name, len(targets)), nil); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}
	return nil
}

// DeleteSecret is the local-write path (spec §4.6 "Delete secret"): it
// always deletes the replica targeted at this node (only the target may
// delete its own secret), removes that record from the local store, and
// broadcasts SecretDelete.
func (a *Actor) DeleteSecret(ctx context.Context, name, hash string) error {
	name = identity.NormalizeName(name)
	target := a.identity.NodeID()

	if err := a.secrets.Delete(ctx, name, hash, target); err != nil {
		return apperr.Wrap(apperr.StoreError, "delete secret", err)
	}

	if err := a.auditLog.Record(ctx, audit.EventSecretDeleted, fmt.Sprintf("deleted secret %q", name), nil); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}

	msg := wire.SecretDelete(name, hash, target, time.Now().Unix())
	if err := a.sender.Send(ctx, msg); err != nil {
		a.log.WithError(err).WithField("name", name).Warn("failed to queue secret deletion broadcast")
	}
	return nil
}
