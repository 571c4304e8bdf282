package credstore

import (
	"context"
	"os/exec"
	"testing"
)

func requireSystemdCreds(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("systemd-creds"); err != nil {
		t.Skip("systemd-creds not available on this host")
	}
}

func TestIsAvailableMatchesLookPath(t *testing.T) {
	s := New(t.TempDir(), false)
	_, lookPathErr := exec.LookPath("systemd-creds")
	if s.IsAvailable() != (lookPathErr == nil) {
		t.Errorf("IsAvailable() = %v, want %v", s.IsAvailable(), lookPathErr == nil)
	}
}

func TestWriteSucceedsWithRealBinary(t *testing.T) {
	requireSystemdCreds(t)

	s := New(t.TempDir(), false)
	if err := s.Write(context.Background(), "db-password", []byte("hunter2")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestWriteFailsWhenBinaryMissing(t *testing.T) {
	s := New(t.TempDir(), false)
	t.Setenv("PATH", "")

	if err := s.Write(context.Background(), "db-password", []byte("hunter2")); err == nil {
		t.Error("expected Write to fail when systemd-creds is not on PATH")
	}
}
