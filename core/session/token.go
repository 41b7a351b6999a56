package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var NowFunc = time.Now // mockable

// Claims are the claims read from a bearer token issued by the backend.
// Claims of an unexpected type are left empty instead of failing the decoding.
type Claims struct {
	Role      Role
	UserID    string
	Subject   string
	ExpiresAt int64 // unix seconds, 0 when absent
}

// DecodeToken reads the claims of a JWT without verifying its signature.
func DecodeToken(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	raw := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, raw); err != nil {
		return nil, errors.Wrap(err, "decoding token")
	}
	role, _ := raw["role"].(string)
	sub, _ := raw["sub"].(string)
	return &Claims{
		Role:      Role(role),
		UserID:    claimString(raw["userId"]),
		Subject:   sub,
		ExpiresAt: claimUnix(raw["exp"]),
	}, nil
}

func claimString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func claimUnix(v interface{}) int64 {
	switch v := v.(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	}
	return 0
}

// RoleFromToken returns the role claim of the token, or "" when it cannot be decoded.
func RoleFromToken(token string) Role {
	claims, err := DecodeToken(token)
	if err != nil {
		return ""
	}
	return claims.Role
}

// IsTokenExpired treats undecodable tokens and tokens without an exp claim as expired.
func IsTokenExpired(token string) bool {
	claims, err := DecodeToken(token)
	if err != nil || claims.ExpiresAt == 0 {
		return true
	}
	return time.Unix(claims.ExpiresAt, 0).Before(NowFunc())
}
