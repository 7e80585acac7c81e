// SPDX-License-Identifier: MIT

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Classification errors for 401/403 mapping.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrWeakSecret   = errors.New("signing secret must be at least 32 bytes")
	ErrNoScope      = errors.New("scope not granted")
)

// MinSecretLen is the minimum HS256 secret length accepted.
const MinSecretLen = 32

// DefaultLeeway tolerates clock skew between issuer and server.
const DefaultLeeway = 30 * time.Second

// Claims is the token payload. Scope is a space separated list (RFC 8693 style).
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scopes splits the scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Manager issues and verifies HS256 tokens for one issuer.
type Manager struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewManager builds a Manager. The secret must be at least MinSecretLen bytes.
func NewManager(secret, issuer string) (*Manager, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		leeway: DefaultLeeway,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject with the given scopes and lifetime.
func (m *Manager) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm, issuer and time claims.
func (m *Manager) Parse(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithLeeway(m.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return &Principal{Subject: claims.Subject, Scopes: claims.Scopes()}, nil
}
