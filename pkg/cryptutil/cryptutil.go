// Package cryptutil implements the content hashing and per-target secret
// encryption used by the replication actor (spec §3 Secret, §4.6 create
// path). Encryption is ECIES-style: an ephemeral X25519 keypair agrees a
// shared secret with the target's recipient public key, HKDF-SHA256
// stretches it into a ChaCha20-Poly1305 key, and the ephemeral public key
// travels alongside the ciphertext so the target can redo the same
// agreement with its recipient private key.
package cryptutil

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"
)

const hkdfInfo = "warren/secret/v1"

// Hash returns the hex-encoded BLAKE3-256 digest of cleartext, after
// trimming leading/trailing whitespace, as the spec's "collision-resistant
// digest over UTF-8 bytes" (spec §4.6 step 2).
func Hash(cleartext string) string {
	trimmed := strings.TrimSpace(cleartext)
	sum := blake3.Sum256([]byte(trimmed))
	return fmt.Sprintf("%x", sum[:])
}

// Encrypt encrypts cleartext for the holder of recipientPub, returning a
// self-contained ciphertext: the ephemeral public key followed by the
// ChaCha20-Poly1305-sealed payload.
func Encrypt(recipientPub [32]byte, cleartext []byte) ([]byte, error) {
	var ephemeralPriv, ephemeralPub [32]byte
	if _, err := rand.Read(ephemeralPriv[:]); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	curve25519.ScalarBaseMult(&ephemeralPub, &ephemeralPriv)

	shared, err := curve25519.X25519(ephemeralPriv[:], recipientPub[:])
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, cleartext, nil)

	out := make([]byte, 0, len(ephemeralPub)+len(nonce)+len(sealed))
	out = append(out, ephemeralPub[:]...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt reverses Encrypt using the recipient's private key.
func Decrypt(recipientPriv [32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 32 {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}

	var ephemeralPub [32]byte
	copy(ephemeralPub[:], ciphertext[:32])
	rest := ciphertext[32:]

	shared, err := curve25519.X25519(recipientPriv[:], ephemeralPub[:])
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext missing nonce")
	}
	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	cleartext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return cleartext, nil
}

func newAEAD(sharedSecret []byte) (interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, sharedSecret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}
