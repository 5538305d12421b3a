// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// Token configuration.
const (
	SessionTokenExpiry = time.Hour
	MinSecretLength    = 32
	DefaultIssuer      = "storefront"
)

// Claims are the contents of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  Kind   `json:"kind"`
}

// SubjectID parses the subject claim as a principal ID.
func (c *Claims) SubjectID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(errutil.CodeUnauthorized).With("subject", c.Subject).Wrap(err)
	}
	return id, nil
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the time source, for tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

// WithTokenTTL overrides SessionTokenExpiry.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// NewTokenIssuer creates a TokenIssuer. The secret must be at least
// MinSecretLength bytes.
func NewTokenIssuer(secret []byte, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("length", len(secret)).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	t := &TokenIssuer{
		secret: secret,
		ttl:    SessionTokenExpiry,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue mints a token for p. Returns the compact token and its expiry.
func (t *TokenIssuer) Issue(p *Principal) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: p.Email,
		Kind:  p.Kind,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("principal_id", p.ID.String()).Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Any failure (empty, malformed, wrong
// algorithm, bad signature, expired) yields TOKEN_INVALID.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, oops.Code(errutil.CodeUnauthorized).Errorf("token is missing")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, oops.Code(errutil.CodeUnauthorized).Wrap(err)
	}
	if !token.Valid {
		return nil, oops.Code(errutil.CodeUnauthorized).Errorf("token is invalid")
	}
	if !claims.Kind.Valid() {
		return nil, oops.Code(errutil.CodeUnauthorized).With("kind", string(claims.Kind)).Errorf("token kind is invalid")
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, err
	}
	return claims, nil
}
