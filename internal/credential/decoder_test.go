package credential

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestJWTDecoder_Decode_ReturnsExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw, err := Issue("alice@example.com", []byte("secret"), time.Hour, now)
	require.NoError(t, err)

	got, err := NewJWTDecoder().Decode(raw)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(time.Hour)), "got %s", got)
}

func TestJWTDecoder_Decode_IgnoresSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw, err := Issue("bob", []byte("key-one"), time.Minute, now)
	require.NoError(t, err)

	// Same token with a garbage signature still decodes.
	tampered := raw[:len(raw)-4] + "AAAA"

	got, err := NewJWTDecoder().Decode(tampered)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(time.Minute)))
}

func TestJWTDecoder_Decode_HandcraftedToken(t *testing.T) {
	raw := segment(`{"alg":"HS256","typ":"JWT"}`) + "." + segment(`{"exp":1800000000}`) + ".c2ln"

	got, err := NewJWTDecoder().Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1_800_000_000), got.Unix())
}

func TestJWTDecoder_Decode_IgnoresHeader(t *testing.T) {
	body := segment(`{"exp":1800000000}`)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no alg", header: segment(`{"typ":"JWT"}`)},
		{name: "unknown alg", header: segment(`{"alg":"XS999"}`)},
		{name: "alg none", header: segment(`{"alg":"none"}`)},
		{name: "header not json", header: segment("garbage")},
		{name: "empty signature", header: segment(`{"alg":"HS256"}`)},
	}

	d := NewJWTDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := ".c2ln"
			if tt.name == "empty signature" {
				sig = "."
			}
			got, err := d.Decode(tt.header + "." + body + sig)
			require.NoError(t, err)
			assert.Equal(t, int64(1_800_000_000), got.Unix())
		})
	}
}

func TestJWTDecoder_Decode_FractionalExp(t *testing.T) {
	raw := segment(`{"alg":"HS256"}`) + "." + segment(`{"exp":1800000000.5}`) + ".c2ln"

	got, err := NewJWTDecoder().Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1_800_000_000), got.Unix())
}

func TestJWTDecoder_Decode_Malformed(t *testing.T) {
	header := segment(`{"alg":"HS256","typ":"JWT"}`)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not a token", raw: "not-a-token"},
		{name: "empty", raw: ""},
		{name: "two segments", raw: header + "." + segment(`{"exp":1}`)},
		{name: "four segments", raw: header + "." + segment(`{"exp":1}`) + ".a.b"},
		{name: "payload not base64", raw: header + ".***.sig"},
		{name: "payload not json", raw: header + "." + segment("not-json") + ".sig"},
		{name: "missing exp", raw: header + "." + segment(`{"sub":"x"}`) + ".sig"},
		{name: "exp not numeric", raw: header + "." + segment(`{"exp":"tomorrow"}`) + ".sig"},
		{name: "exp quoted number", raw: header + "." + segment(`{"exp":"1800000000"}`) + ".sig"},
		{name: "exp null", raw: header + "." + segment(`{"exp":null}`) + ".sig"},
		{name: "exp object", raw: header + "." + segment(`{"exp":{"at":1}}`) + ".sig"},
	}

	d := NewJWTDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedCredential)
		})
	}
}

func TestIssue_EmptyKey(t *testing.T) {
	_, err := Issue("x", nil, time.Minute, time.Now())
	require.Error(t, err)
}
