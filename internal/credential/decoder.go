// Package credential reads and mints the bearer tokens held by the
// credential store.
//
// Decoding never checks the signature. The server re-validates the token on
// every authenticated request; the client only needs the expiry claim to
// schedule its own logout.
package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Decoder extracts the expiry instant from a raw token.
type Decoder interface {
	Decode(raw string) (time.Time, error)
}

// JWTDecoder decodes compact JWS tokens (header.payload.signature).
type JWTDecoder struct {
	parser *jwt.Parser
}

func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{parser: jwt.NewParser()}
}

// payload holds the only claim the decoder reads, kept raw so its JSON type
// can be checked.
type payload struct {
	Exp json.RawMessage `json:"exp"`
}

// Decode returns the "exp" claim as an absolute instant. Only the payload
// segment is read: the header (including "alg") and the signature are
// ignored. Wrong segment count, bad base64url, a non-JSON payload and a
// missing or non-numeric "exp" are reported as common.ErrMalformedCredential.
func (d *JWTDecoder) Decode(raw string) (time.Time, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: expected 3 segments, got %d", common.ErrMalformedCredential, len(parts))
	}

	data, err := d.parser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: payload: %v", common.ErrMalformedCredential, err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return time.Time{}, fmt.Errorf("%w: payload: %v", common.ErrMalformedCredential, err)
	}

	exp := bytes.TrimSpace(p.Exp)
	if len(exp) == 0 || bytes.Equal(exp, []byte("null")) {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", common.ErrMalformedCredential)
	}
	// NumericDate also accepts quoted numbers; a JSON string is not a date.
	if exp[0] == '"' {
		return time.Time{}, fmt.Errorf("%w: exp claim is not a number", common.ErrMalformedCredential)
	}

	var at jwt.NumericDate
	if err := at.UnmarshalJSON(exp); err != nil {
		return time.Time{}, fmt.Errorf("%w: exp claim: %v", common.ErrMalformedCredential, err)
	}
	return at.Time, nil
}
