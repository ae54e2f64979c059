package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingHeader = errors.New("authorization header missing")
	ErrBadHeader     = errors.New("invalid authorization header format")
)

// ParticipantClaims are the claims carried by a collaboration access token.
type ParticipantClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// MintToken signs a participant token. Used by the relay's local-dev auth
// and by tests; production tokens come from the platform's auth service.
func MintToken(secret []byte, userID, username string, ttl time.Duration) (string, error) {
	claims := ParticipantClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses and verifies a participant token.
func ValidateToken(secret []byte, tokenString string) (*ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ParticipantClaims)
	if !ok || claims.UserID == "" {
		return nil, errors.New("token missing participant identity")
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingHeader
	}
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", ErrBadHeader
	}
	return authHeader[7:], nil
}
