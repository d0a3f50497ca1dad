package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "tutorhub-web"
	tokenAudience = "tutorhub-api"
)

// Claims is the payload of the identity token the backend verifies.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type TokenMinter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenMinter(secret string, ttl time.Duration) *TokenMinter {
	return &TokenMinter{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint signs a new short-lived token for id. Every call yields a distinct
// token.
func (m *TokenMinter) Mint(id Identity) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("identity token secret is not configured")
	}

	now := m.now()
	claims := Claims{
		Email:   id.Email,
		Name:    id.DisplayName,
		Picture: id.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return token, nil
}

// Verify parses a token minted by Mint.
func (m *TokenMinter) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify identity token: %w", err)
	}
	return claims, nil
}
