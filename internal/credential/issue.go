package credential

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload minted by Issue.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for subject valid for ttl from now.
// It exists for local development and tests; production tokens come from
// the login flow.
func Issue(subject string, key []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(key) == 0 {
		return "", errors.New("empty signing key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString(key)
}
