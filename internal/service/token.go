package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"leetcode-tracker/internal/model"
)

// Claims carried by a session token. The JSON names match what existing
// clients decode.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenIssuer mints and verifies self-contained HS256 session tokens. With no
// denylist attached, a token stays valid until it expires.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
	denylist Denylist
}

func NewTokenIssuer(secret string, lifetime time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is not configured", model.ErrConfiguration)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", model.ErrConfiguration)
	}

	return &TokenIssuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

func (t *TokenIssuer) WithDenylist(denylist Denylist) *TokenIssuer {
	t.denylist = denylist
	return t
}

func (t *TokenIssuer) RevocationEnabled() bool {
	return t.denylist != nil
}

func (t *TokenIssuer) Lifetime() time.Duration {
	return t.lifetime
}

func (t *TokenIssuer) Issue(userID int64, email string) (string, error) {
	if t == nil || len(t.secret) == 0 {
		return "", fmt.Errorf("%w: JWT_SECRET is not configured", model.ErrConfiguration)
	}

	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first and the expiry second, so a tampered
// token is always model.ErrInvalidToken even when it has also expired.
func (t *TokenIssuer) Verify(ctx context.Context, tokenString string) (model.Identity, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return model.Identity{}, err
	}

	if t.denylist != nil {
		revoked, err := t.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return model.Identity{}, fmt.Errorf("verify token: %w", err)
		}
		if revoked {
			return model.Identity{}, model.ErrTokenRevoked
		}
	}

	return model.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke denylists the token identity was verified from until its natural
// expiry. It is a no-op when no denylist is attached.
func (t *TokenIssuer) Revoke(ctx context.Context, identity model.Identity) error {
	if t.denylist == nil {
		return nil
	}
	if identity.TokenID == "" {
		return model.ErrInvalidToken
	}

	return t.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt)
}

func (t *TokenIssuer) parse(tokenString string) (*Claims, error) {
	if t == nil || len(t.secret) == 0 {
		return nil, fmt.Errorf("%w: JWT_SECRET is not configured", model.ErrConfiguration)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return nil, model.ErrInvalidToken
	default:
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if claims.UserID <= 0 || claims.Email == "" || claims.ExpiresAt == nil {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}
