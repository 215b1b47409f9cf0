package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/attarco/attar-backend/pkg/config"
)

// AccessClaims is the JWT payload the storefront issues to shoppers.
type AccessClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates the signature, issuer and expiry of an
// access token and returns its claims.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("access token is not valid")
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("access token carries no user id")
	}
	return claims, nil
}

// NewAccessToken mints a signed access token for the user.
func NewAccessToken(cfg config.JWTConfig, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}
