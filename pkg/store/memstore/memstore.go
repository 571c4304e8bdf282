// Package memstore is an in-memory store.Store used by actor tests and the
// end-to-end scenario suite, standing in for pkg/store/pgstore without a
// live database (spec §8 "in-memory transport + in-memory store fakes").
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warren-mesh/warren/pkg/store"
)

// Store is a goroutine-safe, in-process implementation of store.Store.
type Store struct {
	identity *identityStore
	peers    *peerStore
	secrets  *secretStore
	audit    *auditStore
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		identity: &identityStore{},
		peers:    &peerStore{records: make(map[string]store.Peer)},
		secrets:  &secretStore{records: make(map[secretKey]store.SecretRecord)},
		audit:    &auditStore{},
	}
}

func (s *Store) Identity() store.IdentityStore { return s.identity }
func (s *Store) Peers() store.PeerStore        { return s.peers }
func (s *Store) Secrets() store.SecretStore    { return s.secrets }
func (s *Store) Audit() store.AuditStore       { return s.audit }
func (s *Store) Close() error                  { return nil }

type identityStore struct {
	mu  sync.Mutex
	rec *store.IdentityRecord
}

func (i *identityStore) Get(ctx context.Context) (*store.IdentityRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rec, nil
}

func (i *identityStore) CreateIfAbsent(ctx context.Context, rec *store.IdentityRecord) (*store.IdentityRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.rec == nil {
		i.rec = rec
	}
	return i.rec, nil
}

type peerStore struct {
	mu      sync.Mutex
	records map[string]store.Peer
}

func (p *peerStore) Upsert(ctx context.Context, peer store.Peer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.records[peer.NodeID]
	if !ok {
		p.records[peer.NodeID] = peer
		return nil
	}

	if peer.LastSeen.After(existing.LastSeen) {
		existing.LastSeen = peer.LastSeen
	}
	if peer.Hostname != "" {
		existing.Hostname = peer.Hostname
	}
	if len(peer.RecipientKey) > 0 {
		existing.RecipientKey = peer.RecipientKey
	}
	if peer.Ticket != "" {
		existing.Ticket = peer.Ticket
	}
	p.records[peer.NodeID] = existing
	return nil
}

func (p *peerStore) Get(ctx context.Context, nodeID string) (*store.Peer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[nodeID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (p *peerStore) ScanAll(ctx context.Context) ([]store.Peer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]store.Peer, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

func (p *peerStore) Count(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records), nil
}

type secretKey struct {
	name, hash, target string
}

type secretStore struct {
	mu      sync.Mutex
	records map[secretKey]store.SecretRecord
}

func (s *secretStore) Upsert(ctx context.Context, rec store.SecretRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := secretKey{rec.Name, rec.Hash, rec.Target}
	if existing, ok := s.records[key]; ok {
		if existing.Hash == rec.Hash {
			return false, nil
		}
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[key] = rec
	return true, nil
}

func (s *secretStore) Delete(ctx context.Context, name, hash, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, secretKey{name, hash, target})
	return nil
}

func (s *secretStore) FindByNameHash(ctx context.Context, name, hash, target string) (*store.SecretRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[secretKey{name, hash, target}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *secretStore) ScanAll(ctx context.Context) ([]store.SecretRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.SecretRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

func (s *secretStore) ScanByTarget(ctx context.Context, target string) ([]store.SecretRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.SecretRecord, 0)
	for _, rec := range s.records {
		if rec.Target == target {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *secretStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *secretStore) GroupedByName(ctx context.Context) ([]store.SecretGroup, error) {
	all, err := s.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	return store.GroupRecordsByName(all), nil
}

type auditStore struct {
	mu      sync.Mutex
	entries []store.AuditEvent
}

func (a *auditStore) Record(ctx context.Context, event store.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	a.entries = append(a.entries, event)
	return nil
}

func (a *auditStore) List(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]store.AuditEvent, limit)
	start := len(a.entries) - limit
	copy(out, a.entries[start:])
	return out, nil
}
