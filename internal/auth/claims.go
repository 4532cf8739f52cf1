package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when there is no bearer token to decode.
var ErrNoToken = errors.New("auth: no token")

// Claims is the identity readable from a bearer token payload.
type Claims struct {
	UserID   string
	Email    string
	FullName string
	RoleName string
}

var userIDClaims = []string{"sub", "user_id", "userId", "id", "userid", "username"}

// ClaimsFromToken decodes the payload of a bearer JWT without verifying the
// signature. The console never holds the backend's signing key, so the result
// is only used as a display fallback when the profile fetch fails.
func ClaimsFromToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	c := &Claims{
		Email:    stringClaim(mc, "email"),
		FullName: firstString(mc, "name", "fullName"),
	}
	// Email is deliberately not an id fallback.
	c.UserID = firstString(mc, userIDClaims...)

	c.RoleName = stringClaim(mc, "role")
	if c.RoleName == "" {
		switch roles := mc["roles"].(type) {
		case string:
			c.RoleName = roles
		case []any:
			for _, r := range roles {
				if s, ok := r.(string); ok && s != "" {
					c.RoleName = s
					break
				}
			}
		}
	}

	return c, nil
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v := stringClaim(mc, k); v != "" {
			return v
		}
	}
	return ""
}

func stringClaim(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
