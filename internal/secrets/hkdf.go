package secrets

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bissquit/apimonitor/internal/domain"
)

// hkdfInfo labels the key derivation context so a future rotation of label
// produces an unrelated key even from the same secret.
const hkdfInfo = "apimonitor-credential-seal-v1"

// NewHardened builds a Store using HKDF-SHA256 to derive the AES-256 key
// from secret, instead of the default pad/truncate scheme in DeriveKey.
// Short secrets are rejected outright rather than silently zero-padded.
// No configuration setting selects this constructor; the application
// builds its Store with New.
func NewHardened(secret string, salt []byte) (*Store, error) {
	if len(secret) < 16 {
		return nil, &domain.CryptoError{Op: "new_hardened", Err: errors.New("secret shorter than 16 bytes")}
	}

	key := make([]byte, keyLen)
	kdf := hkdf.New(sha256.New, []byte(secret), salt, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, &domain.CryptoError{Op: "new_hardened", Err: err}
	}
	return &Store{key: key}, nil
}
