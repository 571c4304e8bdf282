package credsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/cryptutil"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/store/memstore"
)

type fakeCredentialWriter struct {
	written map[string][]byte
	failOn  map[string]bool
}

func newFakeCredentialWriter() *fakeCredentialWriter {
	return &fakeCredentialWriter{written: make(map[string][]byte), failOn: make(map[string]bool)}
}

func (f *fakeCredentialWriter) Write(ctx context.Context, name string, content []byte) error {
	if f.failOn[name] {
		return errors.New("simulated credential store failure")
	}
	f.written[name] = content
	return nil
}

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	return id
}

func newTestActor(t *testing.T) (*Actor, *identity.Identity, *fakeCredentialWriter, *memstore.Store) {
	t.Helper()
	id := testIdentity(t)
	creds := newFakeCredentialWriter()
	st := memstore.New()
	a := New(creds, id, st.Secrets(), audit.New(st.Audit()))
	return a, id, creds, st
}

func TestSyncSecretDecryptsAndWrites(t *testing.T) {
	a, id, creds, _ := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	ciphertext, err := cryptutil.Encrypt(id.RecipientPublicKey, []byte("super-secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := a.SyncSecret(ctx, "api-key", ciphertext); err != nil {
		t.Fatalf("SyncSecret: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := creds.written["api-key"]; ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if string(creds.written["api-key"]) != "super-secret" {
		t.Fatalf("written content = %q, want %q", creds.written["api-key"], "super-secret")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestSyncSecretRecordsFailureOnBadCiphertext(t *testing.T) {
	a, _, creds, st := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	if err := a.SyncSecret(ctx, "broken-key", []byte("not valid ciphertext")); err != nil {
		t.Fatalf("SyncSecret: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var events []store.AuditEvent
	for time.Now().Before(deadline) {
		var err error
		events, err = st.Audit().List(ctx, 10)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(events) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(events) == 0 {
		t.Fatal("expected a credential_failed audit event")
	}
	if events[0].Type != audit.EventCredentialFailed {
		t.Errorf("event type = %q, want %q", events[0].Type, audit.EventCredentialFailed)
	}
	if _, ok := creds.written["broken-key"]; ok {
		t.Fatal("expected no credential write for undecryptable ciphertext")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestSyncAllSecretsWritesDecryptableAndSkipsCorrupt(t *testing.T) {
	a, id, creds, st := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, err := cryptutil.Encrypt(id.RecipientPublicKey, []byte("good-secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := st.Secrets().Upsert(ctx, store.SecretRecord{
		Name: "good", Hash: "h1", Target: id.NodeID(), Ciphertext: good,
	}); err != nil {
		t.Fatalf("seed secret: %v", err)
	}
	if _, err := st.Secrets().Upsert(ctx, store.SecretRecord{
		Name: "corrupt", Hash: "h2", Target: id.NodeID(), Ciphertext: []byte("garbage"),
	}); err != nil {
		t.Fatalf("seed secret: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	if err := a.SyncAllSecrets(ctx); err != nil {
		t.Fatalf("SyncAllSecrets: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := creds.written["good"]; ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if string(creds.written["good"]) != "good-secret" {
		t.Fatalf("written content for good secret = %q", creds.written["good"])
	}
	if _, ok := creds.written["corrupt"]; ok {
		t.Fatal("expected corrupt ciphertext to be skipped, not written")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
