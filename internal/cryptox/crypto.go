// Package cryptox seals credential values at rest with AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

var ErrUnseal = errors.New("cannot unseal value")

// DeriveKey stretches secret into a 32-byte AES-256 key. The same secret and
// salt always give the same key, so every process sharing a store derives it
// independently.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with a fresh random nonce and returns
// base64url(nonce || ciphertext).
func Seal(plaintext, key []byte) (string, error) {
	aesgcm, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any tampering, a wrong key or a value that was never
// sealed yields ErrUnseal.
func Open(sealed string, key []byte) ([]byte, error) {
	aesgcm, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(data) < aesgcm.NonceSize() {
		return nil, ErrUnseal
	}

	nonce, ciphertext := data[:aesgcm.NonceSize()], data[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrUnseal
	}
	return plaintext, nil
}
