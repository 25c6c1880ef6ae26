// Package secrets implements authenticated sealing of credential material
// and the constant-time helpers the prober needs to safely compare and
// project decrypted values.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/bissquit/apimonitor/internal/domain"
)

const (
	keyLen   = 32 // AES-256
	nonceLen = 12 // 96-bit GCM nonce
)

// Store seals and opens credential material with AES-256-GCM. A Store holds
// only derived key material; it never retains plaintext beyond the call
// stack of a single Open.
type Store struct {
	key []byte
}

// DeriveKey right-pads or truncates secret to exactly 32 bytes, matching the
// source system's key derivation for operator-supplied secrets. This is
// intentionally weak KDF hygiene: short secrets are silently accepted and
// padded with zero bytes rather than rejected. See DESIGN.md for the
// recorded redesign decision and the hardened alternative in NewHardened.
func DeriveKey(secret string) []byte {
	key := make([]byte, keyLen)
	copy(key, []byte(secret))
	return key
}

// New constructs a Store from a non-empty secret. The secret is derived into
// a 32-byte key with DeriveKey; callers that want HKDF-based derivation
// should use NewHardened instead.
func New(secret string) (*Store, error) {
	if secret == "" {
		return nil, &domain.CryptoError{Op: "new", Err: errors.New("encryption secret not initialized")}
	}
	return &Store{key: DeriveKey(secret)}, nil
}

// Seal encrypts plaintext under a fresh random 96-bit nonce and returns
// base64(nonce || ciphertext || tag).
func (s *Store) Seal(plaintext string) (string, error) {
	if len(s.key) != keyLen {
		return "", &domain.CryptoError{Op: "seal", Err: errors.New("key not initialized")}
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", &domain.CryptoError{Op: "seal", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &domain.CryptoError{Op: "seal", Err: err}
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &domain.CryptoError{Op: "seal", Err: fmt.Errorf("generate nonce: %w", err)}
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts a ciphertext produced by Seal. Any
// tamper, truncation, or wrong-key condition is reported as a CryptoError.
func (s *Store) Open(ciphertext string) (string, error) {
	if len(s.key) != keyLen {
		return "", &domain.CryptoError{Op: "open", Err: errors.New("key not initialized")}
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &domain.CryptoError{Op: "open", Err: fmt.Errorf("decode base64: %w", err)}
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", &domain.CryptoError{Op: "open", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &domain.CryptoError{Op: "open", Err: err}
	}

	if len(raw) < nonceLen {
		return "", &domain.CryptoError{Op: "open", Err: errors.New("ciphertext too short")}
	}
	nonce, sealed := raw[:nonceLen], raw[nonceLen:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &domain.CryptoError{Op: "open", Err: errors.New("authentication failed")}
	}
	return string(plaintext), nil
}

// Mask returns a display-safe projection of plaintext: "****" when
// len(plaintext) < 5, otherwise "****" followed by the last four
// characters. It is deliberately lossy.
func Mask(plaintext string) string {
	r := []rune(plaintext)
	if len(r) < 5 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

// ConstantTimeEqual reports whether a and b hold equal byte content,
// comparing in time independent of where the first mismatch occurs. It
// returns false immediately for unequal lengths, which is itself a
// length-dependent timing signal the caller must accept (spec'd behavior).
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
