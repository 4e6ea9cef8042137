package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned by LoadToken when the stored credential has
// passed its expiry.
var ErrTokenExpired = errors.New("stored auth token has expired")

// Token is the persisted auth credential, the client-side analogue of the
// browser cookie the web app keeps: the bearer value plus an explicit expiry.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveToken persists the token for a profile. When the token is a JWT its
// exp claim overrides the provided expiry.
func SaveToken(profileName, value string, expiresAt time.Time) error {
	if exp, ok := jwtExpiry(value); ok {
		expiresAt = exp
	}
	if err := EnsureDir(profileName); err != nil {
		return err
	}
	data, err := json.Marshal(Token{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	return os.WriteFile(TokenPath(profileName), data, 0600)
}

// LoadToken reads the persisted token for a profile. Returns ErrTokenExpired
// when the expiry has passed.
func LoadToken(profileName string) (*Token, error) {
	data, err := os.ReadFile(TokenPath(profileName))
	if err != nil {
		return nil, err
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if !tok.ExpiresAt.IsZero() && time.Now().After(tok.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

// jwtExpiry extracts the exp claim from a JWT without verifying its
// signature. Verification is the backend's job; the client only wants to know
// whether the credential is stale before dialing.
func jwtExpiry(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
