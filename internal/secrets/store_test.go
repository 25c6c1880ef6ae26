package secrets

import (
	"testing"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeal_RoundTrip(t *testing.T) {
	store, err := New("a reasonably long test secret")
	require.NoError(t, err)

	for _, s := range []string{"", "x", "hello world", "éèêtest"} {
		sealed, err := store.Seal(s)
		require.NoError(t, err)

		opened, err := store.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, s, opened)
	}
}

func TestSeal_DifferentPlaintextsDifferentOpen(t *testing.T) {
	store, err := New("another test secret")
	require.NoError(t, err)

	s1, err := store.Seal("alpha")
	require.NoError(t, err)
	s2, err := store.Seal("beta")
	require.NoError(t, err)

	o1, err := store.Open(s1)
	require.NoError(t, err)
	o2, err := store.Open(s2)
	require.NoError(t, err)
	assert.NotEqual(t, o1, o2)
}

func TestSeal_IVUniqueness(t *testing.T) {
	store, err := New("yet another secret")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		sealed, err := store.Seal("same plaintext every time")
		require.NoError(t, err)
		assert.False(t, seen[sealed], "seal produced a repeated ciphertext")
		seen[sealed] = true
	}
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	store, err := New("tamper test secret")
	require.NoError(t, err)

	sealed, err := store.Seal("protect me")
	require.NoError(t, err)

	tampered := []byte(sealed)
	tampered[len(tampered)-1] ^= 0x01
	_, err = store.Open(string(tampered))
	assert.Error(t, err)
	var cryptoErr *domain.CryptoError
	assert.ErrorAs(t, err, &cryptoErr)
}

func TestOpen_TruncatedCiphertextFails(t *testing.T) {
	store, err := New("truncate test secret")
	require.NoError(t, err)

	sealed, err := store.Seal("protect me too")
	require.NoError(t, err)

	truncated := sealed[:len(sealed)-8]
	_, err = store.Open(truncated)
	assert.Error(t, err)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	store1, err := New("key one")
	require.NoError(t, err)
	store2, err := New("key two")
	require.NoError(t, err)

	sealed, err := store1.Seal("secret payload")
	require.NoError(t, err)

	_, err = store2.Open(sealed)
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "****"},
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "****bcde"},
		{"abcdefgh", "****efgh"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Mask(tc.in))
	}
}

func TestMask_LeaksAtMostFourChars(t *testing.T) {
	secret := "a-fairly-long-secret-value-1234"
	masked := Mask(secret)
	require.True(t, len(masked) >= 4)
	suffix := masked[len(masked)-4:]
	assert.True(t, len(secret) >= 4)
	assert.Equal(t, secret[len(secret)-4:], suffix)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("ab")))
	assert.False(t, ConstantTimeEqual(nil, []byte("x")))
	assert.True(t, ConstantTimeEqual(nil, nil))
}

func TestDeriveKey_PadsAndTruncates(t *testing.T) {
	short := DeriveKey("short")
	assert.Len(t, short, 32)

	long := DeriveKey("this secret is definitely longer than thirty two bytes")
	assert.Len(t, long, 32)
}
