package credstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
)

// Sealed encrypts the slot value of another Backend at rest. Every context
// sharing the store must use the same key.
type Sealed struct {
	inner Backend
	key   []byte
}

var _ Backend = (*Sealed)(nil)

func NewSealed(inner Backend, key []byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// SealKey derives the sealing key for secret and the slot key.
func SealKey(secret, slotKey string) []byte {
	return cryptox.DeriveKey([]byte(secret), []byte("sessionkeeper:"+slotKey))
}

// Read returns an error wrapping common.ErrMalformedCredential when the
// stored value cannot be unsealed with this key.
func (s *Sealed) Read(ctx context.Context) (string, error) {
	sealed, err := s.inner.Read(ctx)
	if err != nil {
		return "", err
	}
	plain, err := cryptox.Open(sealed, s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrMalformedCredential, err)
	}
	return string(plain), nil
}

func (s *Sealed) Write(ctx context.Context, token string) error {
	sealed, err := cryptox.Seal([]byte(token), s.key)
	if err != nil {
		return err
	}
	return s.inner.Write(ctx, sealed)
}

func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

// Subscribe unseals Change.Token before calling fn. A value that cannot be
// unsealed is reported with an empty Token.
func (s *Sealed) Subscribe(fn func(Change)) (Subscription, error) {
	return s.inner.Subscribe(func(c Change) {
		if c.Present {
			if plain, err := cryptox.Open(c.Token, s.key); err == nil {
				c.Token = string(plain)
			} else {
				c.Token = ""
			}
		}
		fn(c)
	})
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}
