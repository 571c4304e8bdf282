// Package audit is the append-only event log actors and the CLI consult to
// explain what the mesh has done (spec §3 Event log), grounded on
// original_source's db/audit_event.rs AuditEvent::log/list pair.
package audit

import (
	"context"

	"github.com/warren-mesh/warren/pkg/store"
)

// Event types recorded by the actor suite.
const (
	EventIdentityGenerated = "identity_generated"
	EventPeerJoined        = "peer_joined"
	EventPeerLeft          = "peer_left"
	EventSecretReplicated  = "secret_replicated"
	EventSecretDeleted     = "secret_deleted"
	EventCredentialWritten = "credential_written"
	EventCredentialFailed  = "credential_failed"
)

// Log records and reads the event log, backed by a store.AuditStore.
type Log struct {
	store store.AuditStore
}

// New wraps an AuditStore as an event Log.
func New(s store.AuditStore) *Log {
	return &Log{store: s}
}

// Record appends an event. data carries event-specific context (peer node
// ID, secret name, failure reason, ...); nil is fine for events with
// nothing further to say.
func (l *Log) Record(ctx context.Context, eventType, message string, data map[string]string) error {
	return l.store.Record(ctx, store.AuditEvent{
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}

// List returns the limit most-recent events, oldest first. A limit <= 0
// returns the full log.
func (l *Log) List(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	return l.store.List(ctx, limit)
}
