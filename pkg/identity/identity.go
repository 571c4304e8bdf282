// Package identity implements node identity: the Ed25519 signing keypair
// whose public half is the node's globally unique ID, the X25519 recipient
// keypair used for per-target secret encryption, and the human-readable
// fingerprint derived from the node ID, as specified in §3 and §4.1.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/text/unicode/norm"
	"lukechampine.com/blake3"
)

// Identity is a node's long-lived cryptographic identity: exactly one exists
// for the lifetime of a node's data directory (spec §3 invariant), lazily
// created on first start and never rotated by the core.
type Identity struct {
	SigningPublicKey  ed25519.PublicKey  `json:"signing_public_key"`
	SigningPrivateKey ed25519.PrivateKey `json:"signing_private_key"`

	RecipientPublicKey  [32]byte `json:"recipient_public_key"`
	RecipientPrivateKey [32]byte `json:"recipient_private_key"`

	nodeID      string
	fingerprint string
}

// Generate creates a fresh identity with new signing and recipient keypairs.
func Generate() (*Identity, error) {
	sigPub, sigPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing keypair: %w", err)
	}

	var recipPriv, recipPub [32]byte
	if _, err := rand.Read(recipPriv[:]); err != nil {
		return nil, fmt.Errorf("generate recipient private key: %w", err)
	}
	curve25519.ScalarBaseMult(&recipPub, &recipPriv)

	id := &Identity{
		SigningPublicKey:    sigPub,
		SigningPrivateKey:   sigPriv,
		RecipientPublicKey:  recipPub,
		RecipientPrivateKey: recipPriv,
	}
	id.nodeID = computeNodeID(id.SigningPublicKey)
	id.fingerprint = computeFingerprint(id.nodeID)
	return id, nil
}

// FromKeys reconstructs an Identity from previously persisted key material
// (used by the store when loading the singleton record back from disk).
func FromKeys(sigPub ed25519.PublicKey, sigPriv ed25519.PrivateKey, recipPub, recipPriv [32]byte) *Identity {
	id := &Identity{
		SigningPublicKey:    sigPub,
		SigningPrivateKey:   sigPriv,
		RecipientPublicKey:  recipPub,
		RecipientPrivateKey: recipPriv,
	}
	id.nodeID = computeNodeID(id.SigningPublicKey)
	id.fingerprint = computeFingerprint(id.nodeID)
	return id
}

// NodeID returns the canonical node identifier: the 32-byte Ed25519 public
// key, rendered as a lowercase hex string. This is the globally unique
// identifier spec.md §3 describes, and the primary key used everywhere a
// peer, secret target, or signature-verification subject is referenced.
func (id *Identity) NodeID() string {
	return id.nodeID
}

// Fingerprint returns a short, human-readable proquint-style rendering of the
// node ID, useful for operator-facing display (logs, CLI output) where the
// full hex ID is unwieldy. Not used for any core correctness decision.
func (id *Identity) Fingerprint() string {
	return id.fingerprint
}

func computeNodeID(pub ed25519.PublicKey) string {
	return fmt.Sprintf("%x", []byte(pub))
}

// computeFingerprint derives a two-word proquint token from the first 32
// bits of BLAKE3(node ID bytes), mirroring the teacher's honeytag scheme.
func computeFingerprint(nodeID string) string {
	hasher := blake3.New(32, nil)
	hasher.Write([]byte(nodeID))
	sum := hasher.Sum(nil)

	fp32 := uint32(sum[0])<<24 | uint32(sum[1])<<16 | uint32(sum[2])<<8 | uint32(sum[3])
	return encodeProquint32(fp32)
}

const (
	consonants = "bdfghjklmnprstvz"
	vowels     = "aeiou"
)

// encodeProquint32 encodes a 32-bit value as two CVCVC proquints joined by '-'.
func encodeProquint32(value uint32) string {
	high := uint16(value >> 16)
	low := uint16(value & 0xFFFF)
	return encodeProquint16(high) + "-" + encodeProquint16(low)
}

func encodeProquint16(val uint16) string {
	result := make([]byte, 5)
	result[0] = consonants[(val>>12)&0x0F]
	result[1] = vowels[(val>>10)&0x03]
	result[2] = consonants[(val>>6)&0x0F]
	result[3] = vowels[(val>>4)&0x03]
	result[4] = consonants[val&0x0F]
	return string(result)
}

// decodeProquint16 is the inverse of encodeProquint16; used only by tests to
// round-trip the fingerprint encoding.
func decodeProquint16(quint string) (uint16, error) {
	if len(quint) != 5 {
		return 0, fmt.Errorf("invalid proquint length: expected 5, got %d", len(quint))
	}

	var result uint16
	for i, char := range quint {
		var val int
		if i%2 == 0 {
			val = strings.IndexRune(consonants, char)
			if val == -1 {
				return 0, fmt.Errorf("invalid consonant: %c", char)
			}
		} else {
			val = strings.IndexRune(vowels, char)
			if val == -1 {
				return 0, fmt.Errorf("invalid vowel: %c", char)
			}
		}

		switch i {
		case 0:
			result |= uint16(val) << 12
		case 1:
			result |= uint16(val) << 10
		case 2:
			result |= uint16(val) << 6
		case 3:
			result |= uint16(val) << 4
		case 4:
			result |= uint16(val)
		}
	}
	return result, nil
}

// NormalizeName applies NFKC normalization and trims surrounding whitespace
// on secret names and hostnames, so visually-identical names compare equal
// across peers using different input methods or locales.
func NormalizeName(raw string) string {
	return norm.NFKC.String(strings.TrimSpace(raw))
}
