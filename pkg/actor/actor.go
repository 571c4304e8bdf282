// Package actor implements the goroutine-per-actor/bounded-mailbox/linked-
// supervisor concurrency model spec §5 describes, grounded on beenet's
// pkg/agent (ctx/cancel/done lifecycle, State enum) generalized from one
// fixed Agent to an arbitrary named Actor, and on
// original_source/src/actors/supervisor.rs's spawn_linked fixed-order start
// (kept) with restart-on-crash (beenet's own supervisor.go) replaced by
// linked shutdown, per the spec's own redesign guidance.
package actor

import (
	"context"

	"github.com/warren-mesh/warren/pkg/constants"
)

// State mirrors the lifecycle beenet's Agent tracks, generalized to any
// actor.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Actor is one mailbox-owning goroutine. Run blocks, processing its mailbox
// and any other work, until ctx is cancelled or a fatal error occurs; it
// must return promptly once ctx.Done() fires.
type Actor interface {
	Name() string
	Run(ctx context.Context) error
}

// Mailbox is a bounded inbox of type T, owned by exactly one actor
// (spec §5 backpressure: a full mailbox blocks the sender rather than
// growing unbounded).
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox creates a mailbox with the given capacity, or
// constants.DefaultMailboxSize if size <= 0.
func NewMailbox[T any](size int) *Mailbox[T] {
	if size <= 0 {
		size = constants.DefaultMailboxSize
	}
	return &Mailbox[T]{ch: make(chan T, size)}
}

// Send enqueues msg, blocking if the mailbox is full, or returning ctx's
// error if ctx is cancelled first.
func (m *Mailbox[T]) Send(ctx context.Context, msg T) error {
	select {
	case m.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues msg without blocking, returning false if the mailbox is
// full.
func (m *Mailbox[T]) TrySend(msg T) bool {
	select {
	case m.ch <- msg:
		return true
	default:
		return false
	}
}

// Receive is the channel an actor's Run loop selects on to read its
// mailbox.
func (m *Mailbox[T]) Receive() <-chan T {
	return m.ch
}
