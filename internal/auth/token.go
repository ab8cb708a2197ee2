package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

// DefaultTokenLifetime is how long an issued token stays valid.
const DefaultTokenLifetime = 3 * time.Hour

var ErrMissingClaim = errors.New("missing token claim")

type Claims struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric id carried in the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

type TokenManager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewTokenManager(secret string, lifetime time.Duration) *TokenManager {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenManager{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Generate signs an HS256 token for the user. Every argument is required.
func (m *TokenManager) Generate(userID int64, username, email string, role model.Role) (string, error) {
	switch {
	case userID <= 0:
		return "", fmt.Errorf("%w: id", ErrMissingClaim)
	case username == "":
		return "", fmt.Errorf("%w: username", ErrMissingClaim)
	case email == "":
		return "", fmt.Errorf("%w: email", ErrMissingClaim)
	case role == "":
		return "", fmt.Errorf("%w: role", ErrMissingClaim)
	case len(m.secret) == 0:
		return "", fmt.Errorf("%w: signing key", ErrMissingClaim)
	}

	now := m.now()
	claims := &Claims{
		Username: username,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
