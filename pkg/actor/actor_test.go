package actor

import (
	"context"
	"testing"
	"time"
)

func TestMailboxSendReceive(t *testing.T) {
	mb := NewMailbox[int](2)
	ctx := context.Background()

	if err := mb.Send(ctx, 1); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := mb.Send(ctx, 2); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := <-mb.Receive(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := <-mb.Receive(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestMailboxSendBlocksUntilContextCancelled(t *testing.T) {
	mb := NewMailbox[int](1)
	ctx := context.Background()

	if err := mb.Send(ctx, 1); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := mb.Send(cancelCtx, 2); err == nil {
		t.Error("expected Send to fail once the mailbox is full and the context expires")
	}
}

func TestMailboxTrySendReportsFull(t *testing.T) {
	mb := NewMailbox[int](1)
	if !mb.TrySend(1) {
		t.Fatal("expected first TrySend to succeed")
	}
	if mb.TrySend(2) {
		t.Error("expected second TrySend on a full mailbox to fail")
	}
}

func TestNewMailboxDefaultsSizeWhenNonPositive(t *testing.T) {
	mb := NewMailbox[int](0)
	for i := 0; i < 10; i++ {
		if !mb.TrySend(i) {
			t.Fatalf("expected default-sized mailbox to accept at least 10 messages, failed at %d", i)
		}
	}
}
