// Package security provides JWT token utilities
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ServiceClaims are the JWT claims carried by a service bearer token.
type ServiceClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateServiceToken creates a signed HS256 bearer token for a platform
// service client.
func GenerateServiceToken(clientID, role, jwtSecret string, ttl time.Duration) (string, *ServiceClaims, error) {
	now := time.Now().UTC()
	claims := &ServiceClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign service token: %w", err)
	}
	return token, claims, nil
}

// ValidateServiceToken validates a bearer token and returns the claims.
// Only HMAC-signed tokens are accepted.
func ValidateServiceToken(tokenString, jwtSecret string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
