package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(NotFound, "peer not found")
	want := "not_found: peer not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapIncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(TransportError, "dial failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should satisfy errors.Is against its cause")
	}
	if err.Error() != "transport_error: dial failed: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(Forbidden, "not the owner")
	if !Is(err, Forbidden) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, NotFound) {
		t.Error("Is should not match a different code")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := New(BadSignature, "signature mismatch")
	outer := fmt.Errorf("verify failed: %w", inner)

	if !Is(outer, BadSignature) {
		t.Error("Is should see through fmt.Errorf wrapping via errors.As")
	}
}

func TestIsFalseForNonAppError(t *testing.T) {
	if Is(errors.New("plain error"), InvalidInput) {
		t.Error("Is should return false for a non-apperr error")
	}
}
