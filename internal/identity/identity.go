// Package identity extracts the acting principal from a bearer token. The
// rest of the system treats the principal as an opaque input; nothing here
// performs authorization beyond reading the staff flag off the claims.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("missing or invalid credentials")

// Principal is the acting user: the account id plus a staff flag.
type Principal struct {
	UserID int64
	Staff  bool
}

type claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

// FromRequest reads the Authorization bearer token and returns the principal
// it encodes.
func FromRequest(r *http.Request, secret string) (*Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrUnauthenticated
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	return FromToken(tokenString, secret)
}

// FromToken parses and verifies an HS256 token with claims {sub, staff}.
func FromToken(tokenString, secret string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	tokenClaims, ok := token.Claims.(*claims)
	if !ok {
		return nil, ErrUnauthenticated
	}

	var userID int64
	if _, err := fmt.Sscan(tokenClaims.Subject, &userID); err != nil {
		return nil, ErrUnauthenticated
	}

	return &Principal{UserID: userID, Staff: tokenClaims.Staff}, nil
}

// IssueToken signs a token for the given principal, used by tests and
// tooling; production tokens come from the identity provider.
func IssueToken(p Principal, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Staff: p.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", p.UserID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}
