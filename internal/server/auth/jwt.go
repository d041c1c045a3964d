// Package auth mints and verifies the HS256 bearer tokens of the mirror API.
// The token subject is the owner id every mirror call is scoped to.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

func GenerateToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	return token.SignedString(secretKey)
}

// GetOwnerIDFromToken validates tokenString and returns its owner id.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// yields common.ErrInvalidToken.
func GetOwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.OwnerID, nil
}
