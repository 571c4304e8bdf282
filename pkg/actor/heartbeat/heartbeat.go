// Package heartbeat implements the periodic keep-alive actor (spec §4.4),
// grounded on original_source/src/actors/gossip/heartbeat.rs's send_interval
// loop, adapted from ractor's interval-cast-to-self to a plain time.Ticker.
package heartbeat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warren-mesh/warren/pkg/constants"
	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/wire"
)

// messageSender is the narrow part of sender.Actor this package depends on.
type messageSender interface {
	Send(ctx context.Context, msg wire.PeerMessage) error
}

// Actor ticks at a fixed interval, broadcasting a Heartbeat message through
// sender each time.
type Actor struct {
	identity *identity.Identity
	sender   messageSender
	interval time.Duration
	log      *logrus.Entry
}

// New creates a heartbeat actor. A non-positive interval falls back to
// constants.HeartbeatInterval.
func New(id *identity.Identity, snd messageSender, interval time.Duration) *Actor {
	if interval <= 0 {
		interval = constants.HeartbeatInterval
	}
	return &Actor{
		identity: id,
		sender:   snd,
		interval: interval,
		log:      logrus.WithField("actor", "heartbeat"),
	}
}

// Name identifies this actor to the supervisor.
func (a *Actor) Name() string { return "heartbeat" }

// Run ticks every interval until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			msg := wire.Heartbeat(a.identity.NodeID(), a.identity.RecipientPublicKey[:], time.Now().Unix())
			if err := a.sender.Send(ctx, msg); err != nil {
				a.log.WithError(err).Warn("failed to queue heartbeat")
			}
		case <-ctx.Done():
			return nil
		}
	}
}
