// Package meshauth implements the Noise-IK admission handshake new mesh
// connections perform before they may join the bus (spec §4 "peer admission
// / handshake"), grounded on beenet's pkg/security/noiseik: ClientHello /
// ServerHello exchange, Ed25519-signed over canonical CBOR, followed by a
// Noise IK static-key handshake binding the session to the signed identity.
//
// Unlike the replication protocol's canonical JSON wire envelopes
// (pkg/codec/canonjson), the handshake messages use canonical CBOR the way
// beenet's noiseik package does — a narrow, deliberate exception kept
// consistent with its origin rather than folded into canonjson.
package meshauth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/flynn/noise"
	"github.com/fxamacker/cbor/v2"
	"github.com/warren-mesh/warren/pkg/constants"
	"github.com/warren-mesh/warren/pkg/identity"
)

var ciphersuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)

var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// ClientHello is the newcomer's opening message: proof of node identity plus
// the mesh admission ticket it was given out of band.
type ClientHello struct {
	Version  uint16 `cbor:"v"`
	NodeID   string `cbor:"node_id"`
	Ticket   string `cbor:"ticket"`
	NoiseKey []byte `cbor:"noise_key"`
	Proof    []byte `cbor:"proof"`
}

// ServerHello is the admitting peer's response.
type ServerHello struct {
	Version  uint16 `cbor:"v"`
	NodeID   string `cbor:"node_id"`
	NoiseKey []byte `cbor:"noise_key"`
	Proof    []byte `cbor:"proof"`
}

// Sign signs ch over its canonical CBOR encoding, excluding Proof itself.
func (ch *ClientHello) Sign(priv ed25519.PrivateKey) error {
	data, err := encodeForSigning(ch)
	if err != nil {
		return fmt.Errorf("encode ClientHello for signing: %w", err)
	}
	ch.Proof = ed25519.Sign(priv, data)
	return nil
}

// Verify checks ch's signature against pub.
func (ch *ClientHello) Verify(pub ed25519.PublicKey) error {
	if len(ch.Proof) == 0 {
		return fmt.Errorf("ClientHello has no proof")
	}
	proof := ch.Proof
	data, err := encodeForSigning(ch)
	if err != nil {
		return fmt.Errorf("encode ClientHello for verification: %w", err)
	}
	if !ed25519.Verify(pub, data, proof) {
		return fmt.Errorf("ClientHello signature verification failed")
	}
	return nil
}

// Sign signs sh over its canonical CBOR encoding, excluding Proof itself.
func (sh *ServerHello) Sign(priv ed25519.PrivateKey) error {
	data, err := encodeServerHelloForSigning(sh)
	if err != nil {
		return fmt.Errorf("encode ServerHello for signing: %w", err)
	}
	sh.Proof = ed25519.Sign(priv, data)
	return nil
}

// Verify checks sh's signature against pub.
func (sh *ServerHello) Verify(pub ed25519.PublicKey) error {
	if len(sh.Proof) == 0 {
		return fmt.Errorf("ServerHello has no proof")
	}
	proof := sh.Proof
	data, err := encodeServerHelloForSigning(sh)
	if err != nil {
		return fmt.Errorf("encode ServerHello for verification: %w", err)
	}
	if !ed25519.Verify(pub, data, proof) {
		return fmt.Errorf("ServerHello signature verification failed")
	}
	return nil
}

func encodeForSigning(ch *ClientHello) ([]byte, error) {
	proof := ch.Proof
	ch.Proof = nil
	data, err := cborEncMode.Marshal(ch)
	ch.Proof = proof
	return data, err
}

func encodeServerHelloForSigning(sh *ServerHello) ([]byte, error) {
	proof := sh.Proof
	sh.Proof = nil
	data, err := cborEncMode.Marshal(sh)
	sh.Proof = proof
	return data, err
}

// Marshal encodes ch to canonical CBOR.
func (ch *ClientHello) Marshal() ([]byte, error) { return cborEncMode.Marshal(ch) }

// Unmarshal decodes ch from CBOR.
func (ch *ClientHello) Unmarshal(data []byte) error { return cbor.Unmarshal(data, ch) }

// Marshal encodes sh to canonical CBOR.
func (sh *ServerHello) Marshal() ([]byte, error) { return cborEncMode.Marshal(sh) }

// Unmarshal decodes sh from CBOR.
func (sh *ServerHello) Unmarshal(data []byte) error { return cbor.Unmarshal(data, sh) }

// NodeIDToPublicKey recovers the Ed25519 public key a Hello's NodeID claims
// to be, mirroring pkg/wire/envelope.go's nodeIDToPublicKey: a node ID is
// the hex encoding of the raw public key, so this is what both Verify calls
// in admitInbound/admitOutbound check the signed Proof against.
func NodeIDToPublicKey(nodeID string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(nodeID)
	if err != nil {
		return nil, fmt.Errorf("decode node ID hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("node ID has wrong length: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// Handshake drives one Noise IK handshake binding a transport connection to
// a signed node identity.
type Handshake struct {
	identity    *identity.Identity
	isInitiator bool
	noiseState  *noise.HandshakeState
	complete    bool
}

// NewInitiatorHandshake starts the handshake from the connecting side.
// peerStaticKey is the admitting peer's X25519 public key, learned from its
// advertised ticket.
func NewInitiatorHandshake(id *identity.Identity, peerStaticKey []byte) (*Handshake, error) {
	state, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: ciphersuite,
		Random:      rand.Reader,
		Pattern:     noise.HandshakeIK,
		Initiator:   true,
		StaticKeypair: noise.DHKey{
			Private: id.RecipientPrivateKey[:],
			Public:  id.RecipientPublicKey[:],
		},
		PeerStatic: peerStaticKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create initiator handshake state: %w", err)
	}
	return &Handshake{identity: id, isInitiator: true, noiseState: state}, nil
}

// NewResponderHandshake starts the handshake from the admitting side.
func NewResponderHandshake(id *identity.Identity) (*Handshake, error) {
	state, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: ciphersuite,
		Random:      rand.Reader,
		Pattern:     noise.HandshakeIK,
		Initiator:   false,
		StaticKeypair: noise.DHKey{
			Private: id.RecipientPrivateKey[:],
			Public:  id.RecipientPublicKey[:],
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create responder handshake state: %w", err)
	}
	return &Handshake{identity: id, isInitiator: false, noiseState: state}, nil
}

// WriteMessage advances the handshake, producing the next message to send.
func (h *Handshake) WriteMessage(payload []byte) ([]byte, error) {
	msg, cs1, cs2, err := h.noiseState.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("noise handshake write step: %w", err)
	}
	if cs1 != nil && cs2 != nil {
		h.complete = true
	}
	return msg, nil
}

// ReadMessage advances the handshake with a received message, returning any
// payload it carried.
func (h *Handshake) ReadMessage(msg []byte) ([]byte, error) {
	payload, cs1, cs2, err := h.noiseState.ReadMessage(nil, msg)
	if err != nil {
		return nil, fmt.Errorf("noise handshake read step: %w", err)
	}
	if cs1 != nil && cs2 != nil {
		h.complete = true
	}
	return payload, nil
}

// IsComplete reports whether the Noise handshake has finished.
func (h *Handshake) IsComplete() bool { return h.complete }

// ProtocolVersion is the handshake's own wire version, independent of the
// gossip message protocol version.
const ProtocolVersion = uint16(constants.ProtocolVersion)
