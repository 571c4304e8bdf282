// Package sender implements the gossip sender actor (spec §4.2): every
// outbound PeerMessage is signed with the node's identity and broadcast to
// the mesh bus. Grounded on original_source/src/actors/gossip/gossip_sender.rs
// and sender.rs, whose send_peer_message/announce_secret/announce_secret_deletion
// helpers collapse here into one sign-then-broadcast path fed by a mailbox,
// since every message this node originates is signed the same way.
package sender

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/actor"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/meshbus"
	"github.com/warren-mesh/warren/pkg/wire"
)

// Actor is the sender: every other actor that originates a message hands it
// to Send, which signs and broadcasts it in call order on the actor's own
// goroutine.
type Actor struct {
	mailbox  *actor.Mailbox[wire.PeerMessage]
	bus      *meshbus.Bus
	identity *identity.Identity
	log      *logrus.Entry
}

// New creates a sender actor bound to bus, signing every outbound message
// with id.
func New(bus *meshbus.Bus, id *identity.Identity) *Actor {
	return &Actor{
		mailbox:  actor.NewMailbox[wire.PeerMessage](0),
		bus:      bus,
		identity: id,
		log:      logrus.WithField("actor", "sender"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "sender" }

// Send enqueues msg for signing and broadcast, blocking if the mailbox is
// full or returning ctx's error if ctx is cancelled first.
func (a *Actor) Send(ctx context.Context, msg wire.PeerMessage) error {
	return a.mailbox.Send(ctx, msg)
}

// Run drains the mailbox, signing and broadcasting each message in turn,
// until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-a.mailbox.Receive():
			if err := a.broadcast(ctx, msg); err != nil {
				a.log.WithError(err).WithField("type", msg.Type).Warn("failed to broadcast peer message")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Actor) broadcast(ctx context.Context, msg wire.PeerMessage) error {
	env, err := wire.Sign(a.identity.NodeID(), a.identity.SigningPrivateKey, msg)
	if err != nil {
		return fmt.Errorf("sign peer message: %w", err)
	}
	return a.bus.Broadcast(ctx, env)
}
