package meshbus

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/transport"
	"github.com/warren-mesh/warren/pkg/wire"
)

// memTransport is an in-process transport.Transport backed by net.Pipe,
// standing in for QUIC/TCP in tests the way the store package uses
// memstore in place of Postgres.
type memTransport struct {
	mu        sync.Mutex
	listeners map[string]*memListener
}

func newMemTransport() *memTransport {
	return &memTransport{listeners: make(map[string]*memListener)}
}

func (t *memTransport) Name() string     { return "mem" }
func (t *memTransport) DefaultPort() int { return 0 }

func (t *memTransport) Listen(ctx context.Context, addr string, tlsConfig *tls.Config) (transport.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := &memListener{addr: addr, accept: make(chan net.Conn, 8)}
	t.listeners[addr] = l
	return l, nil
}

func (t *memTransport) Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (transport.Conn, error) {
	t.mu.Lock()
	l, ok := t.listeners[addr]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no listener at %s", addr)
	}

	client, server := net.Pipe()
	l.accept <- server
	return &memConn{Conn: client}, nil
}

type memListener struct {
	addr   string
	accept chan net.Conn
}

func (l *memListener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-l.accept:
		return &memConn{Conn: c}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *memListener) Close() error { close(l.accept); return nil }

func (l *memListener) Addr() net.Addr { return memAddr(l.addr) }

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type memConn struct {
	net.Conn
}

func (c *memConn) ConnectionState() tls.ConnectionState { return tls.ConnectionState{} }

func mustGenerate(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return id
}

func TestSubscribeAndJoinBroadcastRoundTrip(t *testing.T) {
	tr := newMemTransport()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceID := mustGenerate(t)
	bobID := mustGenerate(t)

	alice, err := SubscribeAndJoin(ctx, tr, nil, aliceID, "alice:0", nil)
	if err != nil {
		t.Fatalf("alice SubscribeAndJoin failed: %v", err)
	}
	defer alice.Close()

	bob, err := SubscribeAndJoin(ctx, tr, nil, bobID, "bob:0", []Ticket{
		{Addr: "alice:0", NodeID: aliceID.NodeID(), RecipientKey: aliceID.RecipientPublicKey[:]},
	})
	if err != nil {
		t.Fatalf("bob SubscribeAndJoin failed: %v", err)
	}
	defer bob.Close()

	env, err := wire.Sign(bobID.NodeID(), bobID.SigningPrivateKey, wire.Heartbeat(bobID.NodeID(), bobID.RecipientPublicKey[:], time.Now().Unix()))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if err := bob.Broadcast(ctx, env); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	ev, err := alice.TryNext(ctx)
	if err != nil {
		t.Fatalf("TryNext failed: %v", err)
	}
	if ev.Kind != EventReceived {
		t.Fatalf("expected EventReceived, got %v", ev.Kind)
	}
	if ev.Envelope.From != bobID.NodeID() {
		t.Errorf("expected envelope from bob, got %s", ev.Envelope.From)
	}
}

func TestSubscribeAndJoinEmitsNeighborUp(t *testing.T) {
	tr := newMemTransport()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceID := mustGenerate(t)
	bobID := mustGenerate(t)

	alice, err := SubscribeAndJoin(ctx, tr, nil, aliceID, "alice2:0", nil)
	if err != nil {
		t.Fatalf("alice SubscribeAndJoin failed: %v", err)
	}
	defer alice.Close()

	bob, err := SubscribeAndJoin(ctx, tr, nil, bobID, "bob2:0", []Ticket{
		{Addr: "alice2:0", NodeID: aliceID.NodeID(), RecipientKey: aliceID.RecipientPublicKey[:]},
	})
	if err != nil {
		t.Fatalf("bob SubscribeAndJoin failed: %v", err)
	}
	defer bob.Close()

	ev, err := alice.TryNext(ctx)
	if err != nil {
		t.Fatalf("TryNext failed: %v", err)
	}
	if ev.Kind != EventNeighborUp {
		t.Fatalf("expected EventNeighborUp, got %v", ev.Kind)
	}
}
