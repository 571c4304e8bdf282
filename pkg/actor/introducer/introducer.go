// Package introducer implements the introduction actor, grounded on
// original_source/src/actors/introducer.rs: on NeighborUp for a peer not
// already in the roster, and on every Joined message from another node, it
// broadcasts our own Introduction so the newcomer learns our recipient key
// and can address secrets to us.
package introducer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/actor/receiver"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/wire"
)

// messageSender is the narrow part of sender.Actor this package depends on.
type messageSender interface {
	Send(ctx context.Context, msg wire.PeerMessage) error
}

// Actor subscribes to the receiver and reacts to EventNeighborUp and to
// Joined messages; every other event is ignored.
type Actor struct {
	receiver.Inbox
	identity *identity.Identity
	sender   messageSender
	peers    store.PeerStore
	ticket   string
	hostname string
	log      *logrus.Entry
}

// New creates an introducer actor. ticket and hostname are this node's own
// operator-facing connection hint and display name, carried in the
// Introduction message.
func New(id *identity.Identity, snd messageSender, peers store.PeerStore, ticket, hostname string) *Actor {
	return &Actor{
		Inbox:    receiver.NewInbox(0),
		identity: id,
		sender:   snd,
		peers:    peers,
		ticket:   ticket,
		hostname: hostname,
		log:      logrus.WithField("actor", "introducer"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "introducer" }

// Run drains the subscription inbox until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-a.Events():
			switch {
			case ev.Kind == receiver.EventNeighborUp:
				a.handleNeighborUp(ctx, ev.NodeID)
			case ev.Kind == receiver.EventMessage && ev.Message.Type == wire.TypeJoined && ev.From != a.identity.NodeID():
				intro := wire.Introduction(a.identity.NodeID(), a.ticket, a.hostname, a.identity.RecipientPublicKey[:], time.Now().Unix())
				if err := a.sender.Send(ctx, intro); err != nil {
					a.log.WithError(err).WithField("node_id", ev.From).Warn("failed to queue introduction")
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Actor) handleNeighborUp(ctx context.Context, nodeID string) {
	known, err := a.peers.Get(ctx, nodeID)
	if err != nil {
		a.log.WithError(err).WithField("node_id", nodeID).Warn("failed to look up peer roster")
		return
	}
	if known != nil {
		return
	}

	// Insert a stub roster record before broadcasting so a second NeighborUp
	// for the same still-unconfirmed peer is suppressed by the Get above,
	// rather than re-triggering an Introduction on every reconnect attempt
	// (spec §4.5 "insert a stub record and broadcast an Introduction").
	stub := store.Peer{NodeID: nodeID, LastSeen: time.Now()}
	if err := a.peers.Upsert(ctx, stub); err != nil {
		a.log.WithError(err).WithField("node_id", nodeID).Warn("failed to insert stub peer record")
		return
	}

	intro := wire.Introduction(a.identity.NodeID(), a.ticket, a.hostname, a.identity.RecipientPublicKey[:], time.Now().Unix())
	if err := a.sender.Send(ctx, intro); err != nil {
		a.log.WithError(err).WithField("node_id", nodeID).Warn("failed to queue introduction")
	}
}
