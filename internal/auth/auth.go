// Package auth validates bearer tokens for websocket subscriptions and API
// commands. Tokens are HS256 JWTs whose subject is the user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the token is definitively invalid.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the resolved principal behind a token.
type Identity struct {
	UserID   int64
	Username string
}

// Validator resolves a token to an identity.
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// JWTValidator verifies HS256 tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator builds a validator over the shared signing secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

func (v *JWTValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	identity := &Identity{UserID: userID}
	if name, ok := claims["username"].(string); ok {
		identity.Username = name
	}
	return identity, nil
}

// Issue signs a token for the given user. Used by login flows and tests.
func (v *JWTValidator) Issue(userID int64, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(userID, 10),
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}

// NoopValidator rejects nothing and resolves nobody: every token maps to a
// spectator. Dev mode only.
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, string) (*Identity, error) {
	return nil, nil
}
