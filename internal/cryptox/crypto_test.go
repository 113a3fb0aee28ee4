package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	secret := []byte("secret-password")

	key1 := DeriveKey(secret, []byte("salt-1"))
	key2 := DeriveKey(secret, []byte("salt-1"))
	key3 := DeriveKey(secret, []byte("salt-2"))

	assert.Len(t, key1, 32)
	assert.True(t, bytes.Equal(key1, key2), "same inputs give the same key")
	assert.False(t, bytes.Equal(key1, key3), "different salts give different keys")
}

func TestSealOpen(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	plaintext := []byte("header.payload.signature")

	a, err := Seal(plaintext, key)
	require.NoError(t, err)
	b, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each seal uses a fresh nonce")

	got, err := Open(a, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_Failures(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	other := bytes.Repeat([]byte{8}, 32)

	sealed, err := Seal([]byte("token"), key)
	require.NoError(t, err)

	tampered := []byte(sealed)
	tampered[len(tampered)/2] ^= 0x01

	tests := []struct {
		name   string
		sealed string
		key    []byte
	}{
		{name: "wrong key", sealed: sealed, key: other},
		{name: "tampered", sealed: string(tampered), key: key},
		{name: "not base64", sealed: "a.b.c", key: key},
		{name: "too short", sealed: "AAAA", key: key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.sealed, tt.key)
			require.ErrorIs(t, err, ErrUnseal)
		})
	}

	_, err = Seal([]byte("x"), []byte("short"))
	require.Error(t, err, "invalid AES key length")
}
