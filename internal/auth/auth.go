// Package auth verifies the bearer credentials attached to submissions and
// turns them into accumulator identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rzbill/tally/internal/accumulator"
)

// ErrUnauthenticated is returned for missing, malformed or rejected credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier resolves a credential to an authenticated identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (accumulator.Identity, error)
}

// Claims carried by Tally tokens. The submitter is the registered subject.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier returns a verifier for tokens issued by issuer.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses and validates token, returning its subject.
func (v *JWTVerifier) Verify(_ context.Context, token string) (accumulator.Identity, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	id := accumulator.Identity(strings.TrimSpace(claims.Subject))
	if !id.Valid() {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return id, nil
}

// Issue mints a token for subject valid for ttl.
func (v *JWTVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	now := v.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// AnonymousVerifier accepts every call as a fixed identity. Used when auth is
// disabled in configuration; a supplied credential is used as the identity.
type AnonymousVerifier struct {
	Identity accumulator.Identity
}

func (a AnonymousVerifier) Verify(_ context.Context, credential string) (accumulator.Identity, error) {
	if c := strings.TrimSpace(credential); c != "" {
		return accumulator.Identity(c), nil
	}
	return a.Identity, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type identityKey struct{}

// WithIdentity stores an authenticated identity on ctx.
func WithIdentity(ctx context.Context, id accumulator.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (accumulator.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(accumulator.Identity)
	return id, ok && id.Valid()
}
