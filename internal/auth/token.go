// Package auth provides token issuing and verification for metagrid.
// Tokens are HMAC-signed JWTs carrying the user id and role; the
// real-time layer resolves a token to a user identity exactly once, at
// join time.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/metagrid-dev/metagrid/internal/config"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// carry a bad signature, or were issued by someone else.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject of a token.
type Identity struct {
	// UserID is the stable user identifier.
	UserID string
	// Role is the account privilege level ("user" or "admin").
	Role string
}

// TokenVerifier resolves an opaque token to a user identity.
// The room coordinator depends on this interface only.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// claims is the JWT claims shape shared by issuer and verifier.
type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Service issues and verifies metagrid tokens with a shared HMAC key.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token Service from the given auth configuration.
//
// Precondition: cfg.Secret and cfg.Issuer must be non-empty; cfg.TokenTTL must be positive.
// Postcondition: Returns a Service ready to issue and verify tokens.
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// Issue creates a signed token for the given user.
//
// Precondition: userID must be non-empty.
// Postcondition: Returns a compact JWT valid for the configured TTL.
func (s *Service) Issue(userID, role string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issuing token: user id must not be empty")
	}
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded identity.
//
// Postcondition: Returns the Identity if the token is valid, or
// ErrInvalidToken for any malformed, expired, or foreign token.
func (s *Service) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if parsed.Issuer != s.issuer {
		return Identity{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if parsed.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Identity{UserID: parsed.Subject, Role: parsed.Role}, nil
}
