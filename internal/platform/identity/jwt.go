package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
}

// JWTProvider mints short-lived HS256 tokens for outbound calls made on behalf
// of the request's user, and verifies inbound bearer tokens. Both directions
// share one key and issuer: the storefront API and this service sit behind
// the same auth domain. Inbound tokens must carry the configured issuer and
// an expiry.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTProvider(secret, issuer string, ttl time.Duration) (*JWTProvider, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTProvider{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (p *JWTProvider) CurrentUser(ctx context.Context) (User, bool) {
	return UserFromContext(ctx)
}

// Token mints a new token on every call, so a forced refresh and a plain
// call behave the same.
func (p *JWTProvider) Token(_ context.Context, u User, _ bool) (string, error) {
	if strings.TrimSpace(u.ID) == "" {
		return "", errors.New("user id required")
	}
	now := p.now()
	exp := now.Add(p.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses an inbound bearer token and returns the user it names.
func (p *JWTProvider) Verify(token string) (User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || strings.TrimSpace(c.Subject) == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: c.Subject}, nil
}
