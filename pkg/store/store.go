// Package store defines the persistent store collaborator contract (spec
// §3, §6): a keyed document store for the Identity singleton, the Peer
// roster, Secret replicas, and the audit event log.
package store

import (
	"context"
	"time"
)

// IdentityRecord is the persisted form of a node's signing and recipient
// keypairs (spec §3 Identity — exactly one row exists for the lifetime of
// the node's data directory).
type IdentityRecord struct {
	SigningPublicKey    []byte
	SigningPrivateKey   []byte
	RecipientPublicKey  [32]byte
	RecipientPrivateKey [32]byte
}

// Peer is a remote node the system has learned about (spec §3 Peer).
type Peer struct {
	NodeID       string
	LastSeen     time.Time
	Hostname     string
	RecipientKey []byte
	Ticket       string
}

// SecretRecord is one replica of a secret, keyed by (Name, Hash, Target)
// (spec §3 Secret).
type SecretRecord struct {
	Name       string
	Hash       string
	Target     string
	Ciphertext []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SecretGroup is one secret name's grouped view across every target it has
// been replicated to: the most-recently-updated record per target (spec §2
// Secret store responsibility "produce grouped views").
type SecretGroup struct {
	Name    string
	Targets []SecretRecord
}

// GroupRecordsByName collapses a flat record scan into SecretGroups, one
// per distinct Name, keeping only the record with the latest UpdatedAt for
// each (Name, Target) pair (spec §8 S4). Shared by every SecretStore
// implementation so the supersession-preference logic lives in one place
// rather than being re-derived per backend.
func GroupRecordsByName(records []SecretRecord) []SecretGroup {
	order := make([]string, 0)
	byName := make(map[string]map[string]SecretRecord)

	for _, rec := range records {
		targets, ok := byName[rec.Name]
		if !ok {
			targets = make(map[string]SecretRecord)
			byName[rec.Name] = targets
			order = append(order, rec.Name)
		}
		if existing, ok := targets[rec.Target]; !ok || rec.UpdatedAt.After(existing.UpdatedAt) {
			targets[rec.Target] = rec
		}
	}

	groups := make([]SecretGroup, 0, len(order))
	for _, name := range order {
		targets := byName[name]
		recs := make([]SecretRecord, 0, len(targets))
		for _, rec := range targets {
			recs = append(recs, rec)
		}
		groups = append(groups, SecretGroup{Name: name, Targets: recs})
	}
	return groups
}

// AuditEvent is one append-only audit log entry (spec §3 Event log,
// supplemented per original_source's audit_event.rs).
type AuditEvent struct {
	ID        string
	Type      string
	Message   string
	Data      map[string]string
	CreatedAt time.Time
}

// IdentityStore persists the single Identity record.
type IdentityStore interface {
	// Get returns the persisted identity, or (nil, nil) if none exists yet.
	Get(ctx context.Context) (*IdentityRecord, error)

	// CreateIfAbsent inserts rec as the singleton identity iff none exists
	// yet; a first-writer-wins race on the keyed insert is expected and
	// benign (spec §5 "one-shot generator races benignly").
	CreateIfAbsent(ctx context.Context, rec *IdentityRecord) (*IdentityRecord, error)
}

// PeerStore persists the peer roster, keyed by node ID.
type PeerStore interface {
	// Upsert applies monotone field updates per spec §3 Peer invariants:
	// node ID is immutable once inserted; LastSeen only advances forward;
	// any non-empty Hostname/RecipientKey/Ticket write wins.
	Upsert(ctx context.Context, peer Peer) error

	Get(ctx context.Context, nodeID string) (*Peer, error)
	ScanAll(ctx context.Context) ([]Peer, error)
	Count(ctx context.Context) (int, error)
}

// SecretStore persists Secret replicas keyed by (name, hash, target).
type SecretStore interface {
	// Upsert inserts or replaces the record for (rec.Name, rec.Hash,
	// rec.Target). Returns changed=false if an existing record already has
	// the same hash (spec §4.6 "treat as no-op and return unchanged").
	Upsert(ctx context.Context, rec SecretRecord) (changed bool, err error)

	// Delete removes the record matching (name, hash, target). Deleting a
	// record that does not exist is idempotent (no error).
	Delete(ctx context.Context, name, hash, target string) error

	FindByNameHash(ctx context.Context, name, hash, target string) (*SecretRecord, error)
	ScanAll(ctx context.Context) ([]SecretRecord, error)

	// ScanByTarget returns every record whose Target equals target, used by
	// the credential sync actor's SyncAllSecrets.
	ScanByTarget(ctx context.Context, target string) ([]SecretRecord, error)

	// GroupedByName returns every secret name's records grouped by target,
	// keeping only the most-recently-updated record per (name, target) pair
	// (spec §2 Secret store responsibility "produce grouped views", §8 S4
	// "the UI's grouped view prefers the record with the later updated_at").
	// A rekeyed secret briefly has two persisted rows for the same name and
	// target, differing only in hash and updated_at; this is the one place
	// that collapses them back down to what an operator should see.
	GroupedByName(ctx context.Context) ([]SecretGroup, error)

	Count(ctx context.Context) (int, error)
}

// AuditStore persists the append-only event log.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, limit int) ([]AuditEvent, error)
}

// Store bundles the four sub-stores behind a single collaborator, mirroring
// the accessor-method split the pack's own Postgres store uses.
type Store interface {
	Identity() IdentityStore
	Peers() PeerStore
	Secrets() SecretStore
	Audit() AuditStore
	Close() error
}
