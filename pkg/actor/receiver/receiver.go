// Package receiver implements the gossip receiver actor (spec §4.2): it
// drains the mesh bus's event stream, verifies and rate-limits inbound
// envelopes, maintains the peer roster's monotone fields, and forwards
// every event to a fixed set of subscribers. Grounded on
// original_source/src/actors/gossip/gossip_receiver.rs and
// listener.rs's handle_received_message, which this collapses into one
// verify-then-dispatch loop rather than the original's registry lookup per
// message type.
package receiver

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/actor/ratelimit"
	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/meshbus"
	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/wire"
)

// EventKind distinguishes the three shapes of event a Subscriber can be
// notified of.
type EventKind int

const (
	EventMessage EventKind = iota
	EventNeighborUp
	EventNeighborDown
)

// Event is what the receiver forwards to each subscriber, after signature
// verification and rate limiting have already been applied.
type Event struct {
	Kind    EventKind
	From    string // verified signer node ID; set when Kind == EventMessage
	Message wire.PeerMessage
	NodeID  string // set when Kind == EventNeighborUp or EventNeighborDown
}

// Subscriber receives every receiver Event. Implementations are expected to
// enqueue onto their own bounded mailbox (see Inbox) rather than do work
// inline, so one slow subscriber only back-pressures itself.
type Subscriber interface {
	Notify(ctx context.Context, ev Event) error
}

// Actor is the receiver: one per node, consuming meshbus.Bus.TryNext and
// fanning events out to its subscribers (introducer, replication, and any
// other protocol actor).
type Actor struct {
	bus         *meshbus.Bus
	peers       store.PeerStore
	limiter     *ratelimit.Limiter
	auditLog    *audit.Log
	subscribers []Subscriber
	log         *logrus.Entry
}

// New creates a receiver actor bound to bus, maintaining peers and applying
// limiter, per verified sender, to every Secret and SecretDelete message
// before dispatch.
func New(bus *meshbus.Bus, peers store.PeerStore, limiter *ratelimit.Limiter, auditLog *audit.Log, subscribers ...Subscriber) *Actor {
	return &Actor{
		bus:         bus,
		peers:       peers,
		limiter:     limiter,
		auditLog:    auditLog,
		subscribers: subscribers,
		log:         logrus.WithField("actor", "receiver"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "receiver" }

// Run drains the bus's event stream until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	for {
		ev, err := a.bus.TryNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiver: read next bus event: %w", err)
		}

		switch ev.Kind {
		case meshbus.EventReceived:
			a.handleReceived(ctx, ev)
		case meshbus.EventNeighborUp:
			a.dispatch(ctx, Event{Kind: EventNeighborUp, NodeID: ev.NodeID})
		case meshbus.EventNeighborDown:
			a.dispatch(ctx, Event{Kind: EventNeighborDown, NodeID: ev.NodeID})
		case meshbus.EventLagged:
			a.log.Warn("mesh bus event stream lagged; some events were dropped")
		}
	}
}

func (a *Actor) handleReceived(ctx context.Context, ev *meshbus.Event) {
	msg, err := wire.VerifyAndDecode(ev.Envelope)
	if err != nil {
		a.log.WithError(err).Warn("dropping unverifiable peer message")
		return
	}

	if msg.Type == wire.TypeSecret || msg.Type == wire.TypeSecretDelete {
		if !a.limiter.Allow(ev.Envelope.From) {
			a.log.WithField("from", ev.Envelope.From).Warn("rate limit exceeded, dropping message")
			return
		}
	}

	a.upsertRoster(ctx, msg)
	a.dispatch(ctx, Event{Kind: EventMessage, From: ev.Envelope.From, Message: msg})
}

// upsertRoster applies the monotone peer-roster update every Joined,
// Leaving, Heartbeat, and Introduction message carries, regardless of which
// subscriber ultimately reacts to the message (spec §4.6 "upsert the
// sender's roster record").
func (a *Actor) upsertRoster(ctx context.Context, msg wire.PeerMessage) {
	switch msg.Type {
	case wire.TypeJoined, wire.TypeLeaving, wire.TypeHeartbeat, wire.TypeIntroduction:
	default:
		return
	}

	peer := store.Peer{
		NodeID:       msg.NodeID,
		LastSeen:     time.Unix(msg.Time, 0),
		Hostname:     msg.Hostname,
		RecipientKey: msg.RecipientKey,
		Ticket:       msg.Ticket,
	}
	if err := a.peers.Upsert(ctx, peer); err != nil {
		a.log.WithError(err).WithField("node_id", msg.NodeID).Warn("failed to upsert peer roster")
		return
	}

	var eventType string
	switch msg.Type {
	case wire.TypeJoined:
		eventType = audit.EventPeerJoined
	case wire.TypeLeaving:
		eventType = audit.EventPeerLeft
	default:
		return
	}
	if err := a.auditLog.Record(ctx, eventType, fmt.Sprintf("peer %s", eventType), map[string]string{"node_id": msg.NodeID}); err != nil {
		a.log.WithError(err).Warn("failed to record audit event")
	}
}

func (a *Actor) dispatch(ctx context.Context, ev Event) {
	for _, s := range a.subscribers {
		if err := s.Notify(ctx, ev); err != nil {
			a.log.WithError(err).Warn("subscriber failed to accept event")
		}
	}
}
