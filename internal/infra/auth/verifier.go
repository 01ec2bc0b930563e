// Package auth adapts the external auth provider to the storefront.
// Sign-in happens at the provider; this package only verifies the access
// tokens it issues and tracks one signed-in identity per storefront session.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims the provider issues.
type Claims struct {
	Email        string              `json:"email"`
	UserMetadata domain.UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenVerifier validates provider access tokens signed with the project's
// HS256 secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses the token and returns the identity it carries.
func (v *TokenVerifier) Verify(tokenString string) (*domain.Identity, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing access token"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired access token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid access token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "access token has no subject"}
	}

	return &domain.Identity{
		ID:        claims.Subject,
		Email:     claims.Email,
		Metadata:  claims.UserMetadata,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueToken signs an access token for id with the provider secret. The
// provider issues real tokens; this one serves local development and tests.
func IssueToken(secret string, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        id.Email,
		UserMetadata: id.Metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  jwt.ClaimStrings{"authenticated"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
