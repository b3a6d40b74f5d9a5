// Package auth issues and verifies signed guest identities. A guest token
// binds a generated user id to a display name so a reconnecting client can
// prove it owns the seat it left. Tokens are plain HS256 JWTs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDisabled is returned when no signing secret is configured.
var ErrDisabled = errors.New("auth: guest tokens disabled")

const guestTokenTTL = 30 * 24 * time.Hour

// Service signs and verifies guest tokens. A nil Service rejects everything
// with ErrDisabled.
type Service struct {
	secret []byte
}

// New returns a Service, or nil when secret is empty.
func New(secret string) *Service {
	if secret == "" {
		return nil
	}
	return &Service{secret: []byte(secret)}
}

// Enabled reports whether tokens can be issued.
func (s *Service) Enabled() bool { return s != nil }

type guestClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueGuestToken signs a token binding userID to name.
func (s *Service) IssueGuestToken(userID, name string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	now := time.Now()
	claims := guestClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(guestTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing guest token: %w", err)
	}
	return signed, nil
}

// VerifyGuestToken returns the user id and display name carried by a valid
// token.
func (s *Service) VerifyGuestToken(token string) (userID, name string, err error) {
	if s == nil {
		return "", "", ErrDisabled
	}
	var claims guestClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("parsing guest token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", "", errors.New("auth: invalid guest token")
	}
	return claims.Subject, claims.Name, nil
}
