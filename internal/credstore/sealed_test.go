package credstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealed(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{1}, 32)

	shared := NewMemory("token")
	rawView := shared.Context()
	a := NewSealed(shared.Context(), key)
	b := NewSealed(shared.Context(), key)

	var got []Change
	sub, err := b.Subscribe(func(c Change) { got = append(got, c) })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, a.Write(ctx, "a.b.c"))

	stored, err := rawView.Read(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "a.b.c", stored, "value is sealed at rest")

	plain, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", plain)
	require.Len(t, got, 1)
	assert.Equal(t, Change{Key: "token", Token: "a.b.c", Present: true}, got[0])

	t.Run("foreign value is malformed", func(t *testing.T) {
		require.NoError(t, rawView.Write(ctx, "plain.jwt.value"))
		_, err := b.Read(ctx)
		require.ErrorIs(t, err, common.ErrMalformedCredential)
		assert.Equal(t, "", got[len(got)-1].Token)
	})

	t.Run("wrong key is malformed", func(t *testing.T) {
		require.NoError(t, a.Write(ctx, "a.b.c"))
		other := NewSealed(shared.Context(), bytes.Repeat([]byte{2}, 32))
		_, err := other.Read(ctx)
		require.ErrorIs(t, err, common.ErrMalformedCredential)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, a.Clear(ctx))
		_, err := b.Read(ctx)
		require.ErrorIs(t, err, common.ErrCredentialAbsent)
		require.NoError(t, a.Clear(ctx))
	})
}

func TestSealKey(t *testing.T) {
	assert.Equal(t, SealKey("s", "token"), SealKey("s", "token"))
	assert.NotEqual(t, SealKey("s", "token"), SealKey("s", "jwt"))
}
