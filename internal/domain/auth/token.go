// Package auth issues and verifies the signed session credentials that bind
// requests to a user identity.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// token, expiry. Callers treat it as "unauthenticated", never as a server
// fault, and must not distinguish the cases.
var ErrInvalidToken = errors.New("invalid or expired token")

// Issuer signs and verifies session tokens with a process-wide secret.
// Tokens are HS256 JWTs carrying the user id as subject. There is no
// revocation list; expiry is the only bound on a token's lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl bounds credential lifetime; the reference
// deployment uses 30 days.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured token lifetime. Used to align cookie expiry
// with token expiry.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a new token for the given user id.
func (i *Issuer) Issue(userID string) (string, error) {
	now := i.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns the user id
// it was issued for. Any failure is reported as ErrInvalidToken.
func (i *Issuer) Verify(raw string) (string, error) {
	tok, err := jwt.Parse(raw,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
