// Package token mints the short-lived service tokens presented to the backend
// API. A token asserts exactly one fact, the caller's user id.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed lifetime of a service token.
const TTL = time.Hour

var (
	ErrSigningKeyMissing = errors.New("service token secret not configured")
	ErrNoSubject         = errors.New("service token requires a user id")
	ErrInvalidToken      = errors.New("invalid service token")
)

// Claims is the service token payload: {user_id, iat, exp}.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Minter struct {
	secret []byte
	now    func() time.Time
}

// NewMinter never fails; an empty secret yields a minter whose Mint always
// returns ErrSigningKeyMissing.
func NewMinter(secret string) *Minter {
	return &Minter{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (m *Minter) Enabled() bool {
	return len(m.secret) > 0
}

func (m *Minter) Mint(userID string) (string, error) {
	if !m.Enabled() {
		return "", ErrSigningKeyMissing
	}
	if userID == "" {
		return "", ErrNoSubject
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	})

	return token.SignedString(m.secret)
}

// Parse verifies a token minted with the same secret. The backend does the
// equivalent check; here it backs tests and diagnostics.
func (m *Minter) Parse(tokenString string) (*Claims, error) {
	if !m.Enabled() {
		return nil, ErrSigningKeyMissing
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
