package receiver

import (
	"context"
	"testing"
	"time"

	"github.com/warren-mesh/warren/pkg/actor/ratelimit"
	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/meshbus"
	"github.com/warren-mesh/warren/pkg/store/memstore"
	"github.com/warren-mesh/warren/pkg/wire"
)

type fakeSubscriber struct {
	events chan Event
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{events: make(chan Event, 8)}
}

func (f *fakeSubscriber) Notify(ctx context.Context, ev Event) error {
	f.events <- ev
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

func newTestActor(t *testing.T, subs ...Subscriber) (*Actor, *identity.Identity) {
	t.Helper()
	id := testIdentity(t)
	st := memstore.New()
	limiter := ratelimit.New(ratelimit.Config{})
	return New(nil, st.Peers(), limiter, audit.New(st.Audit()), subs...), id
}

func signedEvent(t *testing.T, id *identity.Identity, msg wire.PeerMessage) *meshbus.Event {
	t.Helper()
	env, err := wire.Sign(id.NodeID(), id.SigningPrivateKey, msg)
	if err != nil {
		t.Fatalf("sign message: %v", err)
	}
	return &meshbus.Event{Kind: meshbus.EventReceived, Envelope: env, NodeID: id.NodeID()}
}

func TestHandleReceivedUpsertsRosterAndDispatches(t *testing.T) {
	sub := newFakeSubscriber()
	a, id := newTestActor(t, sub)

	now := time.Now().Unix()
	msg := wire.Joined(id.NodeID(), "tic-ket", "myhost", id.RecipientPublicKey[:], now)

	a.handleReceived(context.Background(), signedEvent(t, id, msg))

	peer, err := a.peers.Get(context.Background(), id.NodeID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if peer == nil {
		t.Fatal("expected peer to be upserted, got nil")
	}
	if peer.Hostname != "myhost" {
		t.Errorf("Hostname = %q, want %q", peer.Hostname, "myhost")
	}

	select {
	case ev := <-sub.events:
		if ev.Kind != EventMessage {
			t.Errorf("Kind = %v, want EventMessage", ev.Kind)
		}
		if ev.From != id.NodeID() {
			t.Errorf("From = %q, want %q", ev.From, id.NodeID())
		}
	default:
		t.Fatal("expected subscriber to be notified")
	}
}

func TestHandleReceivedDropsUnverifiableEnvelope(t *testing.T) {
	sub := newFakeSubscriber()
	a, id := newTestActor(t, sub)

	now := time.Now().Unix()
	msg := wire.Heartbeat(id.NodeID(), id.RecipientPublicKey[:], now)
	env, err := wire.Sign(id.NodeID(), id.SigningPrivateKey, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	env.Signature[0] ^= 0xFF // corrupt

	a.handleReceived(context.Background(), &meshbus.Event{Kind: meshbus.EventReceived, Envelope: env, NodeID: id.NodeID()})

	select {
	case ev := <-sub.events:
		t.Fatalf("expected no dispatch for unverifiable envelope, got %+v", ev)
	default:
	}
}

func TestHandleReceivedDropsWhenRateLimited(t *testing.T) {
	sub := newFakeSubscriber()
	id := testIdentity(t)
	st := memstore.New()
	limiter := ratelimit.New(ratelimit.Config{Capacity: 1, Refill: time.Hour})
	a := New(nil, st.Peers(), limiter, audit.New(st.Audit()), sub)

	now := time.Now().Unix()
	msg := wire.Secret("api-key", []byte("cipher"), "hash", id.NodeID(), now)

	a.handleReceived(context.Background(), signedEvent(t, id, msg))
	<-sub.events // first message consumes the only token

	a.handleReceived(context.Background(), signedEvent(t, id, msg))

	select {
	case ev := <-sub.events:
		t.Fatalf("expected second message to be rate-limited, got %+v", ev)
	default:
	}
}

func TestDispatchForwardsNeighborEvents(t *testing.T) {
	sub := newFakeSubscriber()
	a, _ := newTestActor(t, sub)

	a.dispatch(context.Background(), Event{Kind: EventNeighborUp, NodeID: "node-x"})

	select {
	case ev := <-sub.events:
		if ev.Kind != EventNeighborUp || ev.NodeID != "node-x" {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected neighbor-up event to be dispatched")
	}
}
