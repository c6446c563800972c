package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims of a Shopify App Bridge session token.
type SessionClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidDestination = errors.New("session token has no shop destination")

// ValidateSessionToken verifies an HS256 session token issued for apiKey and returns the shop
// domain it was issued for.
func ValidateSessionToken(tokenString, apiKey, apiSecret string) (string, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	shop, err := hostOf(claims.Dest)
	if err != nil {
		return "", err
	}
	if claims.Issuer != "" {
		issuer, err := hostOf(claims.Issuer)
		if err != nil || issuer != shop {
			return "", fmt.Errorf("token issuer %q does not match destination %q", claims.Issuer, claims.Dest)
		}
	}
	return shop, nil
}

// GenerateSessionToken signs a session token the way Shopify does. Used by tests and local tooling.
func GenerateSessionToken(shop, apiKey, apiSecret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(apiSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func hostOf(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", ErrInvalidDestination
	}
	return strings.ToLower(u.Hostname()), nil
}
