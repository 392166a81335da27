package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID uint
	Email  string
}

var ErrInvalidToken = errors.New("invalid or expired token")

// New builds and signs an HS256 access token with {id, email} claims and the
// given TTL in minutes.
func New(secret string, userID uint, email string, ttlMin int) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"id":    strconv.FormatUint(uint64(userID), 10),
		"email": email,
		"exp":   now.Add(time.Duration(ttlMin) * time.Minute).Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Verify parses and validates a signed token and extracts its claims.
func Verify(secret, tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	idStr, _ := mapClaims["id"].(string)
	email, _ := mapClaims["email"].(string)
	if idStr == "" || email == "" {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: uint(id), Email: email}, nil
}
