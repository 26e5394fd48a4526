package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthTokens is the credential pair issued by the platform.
type AuthTokens struct {
	// AccessToken is the short-lived bearer credential attached to
	// authenticated requests.
	AccessToken string `json:"accessToken"`

	// RefreshToken is the longer-lived credential used to mint new access
	// tokens. It is only ever sent to /auth/refresh.
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer" in this platform.
	TokenType string `json:"tokenType"`

	// ExpiresIn is the access token lifetime in seconds. A hint - when the
	// access token is a JWT, its exp claim is authoritative.
	ExpiresIn int `json:"expiresIn"`

	// IssuedAt is when the pair was minted.
	IssuedAt time.Time `json:"issuedAt"`
}

// Valid reports the pair invariant: tokens are usable only when both the
// access and the refresh credential are present.
func (t *AuthTokens) Valid() bool {
	return t != nil && t.AccessToken != "" && t.RefreshToken != ""
}

// Expired reports whether the access token is past its expiry at now. The
// JWT exp claim wins when the token parses as one; otherwise IssuedAt plus
// ExpiresIn decides. When neither is available the token is assumed live and
// the server's /auth/verify has the final word.
func (t *AuthTokens) Expired(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if claims := unverifiedClaims(t.AccessToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return now.After(exp.Time)
		}
	}
	if t.ExpiresIn > 0 && !t.IssuedAt.IsZero() {
		return now.After(t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second))
	}
	return false
}

// unverifiedClaims parses the token without signature verification. The
// client holds no verification key; it only reads timing metadata.
func unverifiedClaims(rawToken string) jwt.MapClaims {
	token, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}
