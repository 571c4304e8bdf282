package wire

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/warren-mesh/warren/pkg/apperr"
	"github.com/warren-mesh/warren/pkg/codec/canonjson"
)

// Envelope is the self-describing signed wrapper around every broadcast
// payload (spec §4.1, §6): `{from, data, signature}`. `from` is the signer's
// node ID (hex-encoded Ed25519 public key); `data` is the canonical JSON
// bytes of the PeerMessage, verified directly — no re-marshaling is needed
// to check the signature, only to decode the typed message afterward.
type Envelope struct {
	From      string `json:"from"`
	Data      []byte `json:"data"`
	Signature []byte `json:"signature"`
}

// Sign encodes msg as canonical JSON and produces a signed Envelope
// attributed to nodeID, using the given Ed25519 private key.
func Sign(nodeID string, privateKey ed25519.PrivateKey, msg PeerMessage) (*Envelope, error) {
	data, err := canonjson.Marshal(msg)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "encode peer message", err)
	}

	return &Envelope{
		From:      nodeID,
		Data:      data,
		Signature: ed25519.Sign(privateKey, data),
	}, nil
}

// VerifyAndDecode validates the envelope's signature against its embedded
// `from` node ID and, on success, decodes `data` into a PeerMessage.
// Fails with BadSignature on any of: malformed node ID, public-key mismatch,
// or payload re-deserialization failure — no partial result is ever returned.
func VerifyAndDecode(env *Envelope) (PeerMessage, error) {
	pub, err := nodeIDToPublicKey(env.From)
	if err != nil {
		return PeerMessage{}, apperr.Wrap(apperr.BadSignature, "malformed sender node ID", err)
	}

	if !ed25519.Verify(pub, env.Data, env.Signature) {
		return PeerMessage{}, apperr.New(apperr.BadSignature, "signature does not verify against sender public key")
	}

	var msg PeerMessage
	if err := canonjson.Unmarshal(env.Data, &msg); err != nil {
		return PeerMessage{}, apperr.Wrap(apperr.BadSignature, "decode peer message", err)
	}

	return msg, nil
}

func nodeIDToPublicKey(nodeID string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(nodeID)
	if err != nil {
		return nil, fmt.Errorf("decode node ID hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("node ID has wrong length: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// MarshalEnvelope encodes an Envelope to the wire JSON bytes sent over the
// mesh bus.
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	return canonjson.Marshal(env)
}

// UnmarshalEnvelope decodes wire JSON bytes into an Envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := canonjson.Unmarshal(data, &env); err != nil {
		return nil, apperr.Wrap(apperr.BadSignature, "decode envelope", err)
	}
	return &env, nil
}
