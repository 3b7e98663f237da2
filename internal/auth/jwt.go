package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a storefront session token stays valid.
const DefaultTTL = 12 * time.Hour

// Claims identify the storefront session a browser tab owns.
type Claims struct {
	StorefrontID string `json:"storefront_id"`
	TenantSlug   string `json:"tenant_slug"`
	jwt.RegisteredClaims
}

func GenerateToken(secret, storefrontID, tenantSlug string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := Claims{
		StorefrontID: storefrontID,
		TenantSlug:   tenantSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   storefrontID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.StorefrontID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
