package wire

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

func mustKeypair(t *testing.T) (string, ed25519.PrivateKey, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return hex.EncodeToString(pub), priv, pub
}

func TestSignAndVerifyAndDecodeRoundTrip(t *testing.T) {
	nodeID, priv, _ := mustKeypair(t)
	msg := Heartbeat(nodeID, []byte("recipient-key"), 1234)

	env, err := Sign(nodeID, priv, msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	decoded, err := VerifyAndDecode(env)
	if err != nil {
		t.Fatalf("VerifyAndDecode failed: %v", err)
	}

	if decoded.Type != TypeHeartbeat || decoded.NodeID != nodeID || decoded.Time != 1234 {
		t.Errorf("decoded message does not match original: %+v", decoded)
	}
}

func TestVerifyAndDecodeRejectsTamperedData(t *testing.T) {
	nodeID, priv, _ := mustKeypair(t)
	msg := Leaving(nodeID, "ticket-1", 1000)

	env, err := Sign(nodeID, priv, msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	env.Data = append([]byte(nil), env.Data...)
	env.Data[0] ^= 0xFF

	if _, err := VerifyAndDecode(env); err == nil {
		t.Error("expected verification failure for tampered data")
	}
}

func TestVerifyAndDecodeRejectsWrongSigner(t *testing.T) {
	nodeIDA, privA, _ := mustKeypair(t)
	nodeIDB, _, _ := mustKeypair(t)

	msg := Leaving(nodeIDA, "ticket-1", 1000)
	env, err := Sign(nodeIDA, privA, msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	env.From = nodeIDB

	if _, err := VerifyAndDecode(env); err == nil {
		t.Error("expected verification failure when from does not match signer")
	}
}

func TestVerifyAndDecodeRejectsMalformedNodeID(t *testing.T) {
	env := &Envelope{From: "not-hex!", Data: []byte("{}"), Signature: []byte("sig")}
	if _, err := VerifyAndDecode(env); err == nil {
		t.Error("expected error for malformed node ID")
	}
}

func TestMarshalUnmarshalEnvelope(t *testing.T) {
	nodeID, priv, _ := mustKeypair(t)
	msg := Secret("db-password", []byte("ciphertext"), "deadbeef", nodeID, 42)

	env, err := Sign(nodeID, priv, msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	wireBytes, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("MarshalEnvelope failed: %v", err)
	}

	roundTripped, err := UnmarshalEnvelope(wireBytes)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope failed: %v", err)
	}

	decoded, err := VerifyAndDecode(roundTripped)
	if err != nil {
		t.Fatalf("VerifyAndDecode after wire round-trip failed: %v", err)
	}
	if decoded.Name != "db-password" || decoded.TargetNodeID != nodeID {
		t.Errorf("unexpected decoded message: %+v", decoded)
	}
}

func TestTopicIsZeroPaddedTo32Bytes(t *testing.T) {
	topic := Topic("abc")
	if len(topic) != 32 {
		t.Fatalf("expected topic length 32, got %d", len(topic))
	}
	if topic[0] != 'a' || topic[1] != 'b' || topic[2] != 'c' {
		t.Errorf("topic prefix mismatch: %v", topic[:3])
	}
	for i := 3; i < 32; i++ {
		if topic[i] != 0 {
			t.Errorf("expected zero padding at index %d, got %d", i, topic[i])
		}
	}
}
