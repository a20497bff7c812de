// Package auth issues and validates the JWT access tokens used by the admin
// API. Each token carries the user id, role and the DB session id, so logout
// (session deletion) revokes the token before its expiry.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the ledger user id, role and
// session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"uid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// GenerateToken signs an HS256 token for the given identity.
func GenerateToken(userID int64, role, sessionID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its claims. Expired tokens map
// to common.ErrTokenExpired, anything else invalid to common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
