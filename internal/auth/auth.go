// Package auth resolves the calling account from an HS256 bearer token.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type Claims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func New(c Config) *Authenticator {
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}

	return &Authenticator{
		secret: []byte(c.Secret),
		issuer: c.Issuer,
		ttl:    c.TokenTTL,
	}
}

// Issue signs a token for a.
func (a *Authenticator) Issue(acc domain.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  acc.Name,
		Roles: acc.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return s, nil
}

// Verify parses a token and returns the account it names.
func (a *Authenticator) Verify(token string) (domain.Account, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return domain.Account{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token"),
			errors.WithCause(err))
	}

	if claims.Subject == "" {
		return domain.Account{}, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("token has no subject"))
	}

	return domain.Account{
		ID:    claims.Subject,
		Name:  claims.Name,
		Roles: claims.Roles,
	}, nil
}

// VerifyHeader verifies an "Authorization: Bearer <token>" value.
func (a *Authenticator) VerifyHeader(h string) (domain.Account, error) {
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return domain.Account{}, errors.Unauthenticated()
	}

	return a.Verify(strings.TrimSpace(token))
}

type ctxKey struct{}

// WithAccount returns a context carrying acc.
func WithAccount(ctx context.Context, acc domain.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acc)
}

// FromContext returns the account stored by WithAccount.
func FromContext(ctx context.Context) (domain.Account, bool) {
	acc, ok := ctx.Value(ctxKey{}).(domain.Account)
	return acc, ok && !acc.IsZero()
}
