package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New(Config{Capacity: 3, Refill: time.Hour, Cleanup: time.Hour})

	for i := 0; i < 3; i++ {
		if !l.Allow("node-a") {
			t.Fatalf("request %d should have been allowed", i)
		}
	}

	if l.Allow("node-a") {
		t.Error("request beyond capacity should have been denied")
	}
}

func TestAllowIsPerNodeID(t *testing.T) {
	l := New(Config{Capacity: 1, Refill: time.Hour, Cleanup: time.Hour})

	if !l.Allow("node-a") {
		t.Fatal("first request for node-a should be allowed")
	}
	if l.Allow("node-a") {
		t.Error("second request for node-a should be denied")
	}
	if !l.Allow("node-b") {
		t.Error("node-b should have its own independent bucket")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New(Config{Capacity: 1, Refill: 10 * time.Millisecond, Cleanup: time.Hour})

	if !l.Allow("node-a") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("node-a") {
		t.Fatal("second immediate request should be denied")
	}

	time.Sleep(20 * time.Millisecond)

	if !l.Allow("node-a") {
		t.Error("request after refill interval should be allowed")
	}
}

func TestReset(t *testing.T) {
	l := New(Config{Capacity: 1, Refill: time.Hour, Cleanup: time.Hour})

	l.Allow("node-a")
	if l.Allow("node-a") {
		t.Fatal("bucket should be exhausted before reset")
	}

	l.Reset("node-a")

	if !l.Allow("node-a") {
		t.Error("request after reset should be allowed")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	l := New(Config{})
	if l.capacity != 20 {
		t.Errorf("expected default capacity 20, got %d", l.capacity)
	}
	if l.refill != 30*time.Second {
		t.Errorf("expected default refill 30s, got %s", l.refill)
	}
	if l.cleanup != 10*time.Minute {
		t.Errorf("expected default cleanup 10m, got %s", l.cleanup)
	}
}
