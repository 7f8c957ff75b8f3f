// Package jwtx implements the panel's session token codec: HS256-signed
// bearer tokens carrying the subject's user id and an absolute expiry.
//
// Tokens are stateless by design. There is no server-side session table and
// no revocation; logout only clears the client-side cookie, so a leaked
// token stays valid until its natural expiry.
package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired reports a token whose expiry is at or before "now".
	// The boundary is strict: exp == now is already expired.
	ErrTokenExpired = errors.New("jwtx: token expired")

	// ErrTokenMalformed reports a token that failed to parse or verify.
	ErrTokenMalformed = errors.New("jwtx: token malformed")

	// ErrNoSubject reports a structurally valid token without a usable
	// subject claim.
	ErrNoSubject = errors.New("jwtx: token has no subject")
)

// Codec issues and validates session tokens with a single server-held
// secret. The zero value is unusable; both fields must be set.
type Codec struct {
	Secret []byte
	TTL    time.Duration
}

// Issue produces a signed token for the subject, expiring TTL after now.
func (c *Codec) Issue(subjectID int64, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of a token and returns the
// subject user id. Only HS256 is accepted; a token signed with any other
// algorithm is malformed.
func (c *Codec) Validate(raw string, now time.Time) (int64, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return c.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrTokenMalformed
	}

	// Strict boundary: a token expiring exactly "now" is already expired.
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return 0, ErrTokenExpired
	}

	if claims.Subject == "" {
		return 0, ErrNoSubject
	}
	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subjectID <= 0 {
		return 0, ErrNoSubject
	}

	return subjectID, nil
}
