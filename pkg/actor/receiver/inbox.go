package receiver

import (
	"context"

	"github.com/warren-mesh/warren/pkg/actor"
)

// Inbox is embeddable boilerplate for a Subscriber: Notify enqueues onto a
// bounded mailbox, leaving the embedding actor's own Run loop to drain
// Events() at its own pace.
type Inbox struct {
	mailbox *actor.Mailbox[Event]
}

// NewInbox creates an Inbox with the given mailbox capacity (0 for the
// actor package's default).
func NewInbox(size int) Inbox {
	return Inbox{mailbox: actor.NewMailbox[Event](size)}
}

// Notify implements Subscriber.
func (i *Inbox) Notify(ctx context.Context, ev Event) error {
	return i.mailbox.Send(ctx, ev)
}

// Events is the channel an embedding actor's Run loop selects on.
func (i *Inbox) Events() <-chan Event {
	return i.mailbox.Receive()
}
