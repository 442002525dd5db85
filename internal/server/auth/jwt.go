// Package auth issues and checks the bearer tokens and password hashes used
// by the local identity provider and the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard claims plus the user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// GenerateToken signs an HS256 token for userID and returns it together
// with its expiry.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        common.NewID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// GetUserIDFromToken validates tokenString and returns its user id.
// Expired tokens yield common.ErrTokenExpired; anything else wrong with the
// token yields common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
