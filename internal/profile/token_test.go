package profile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"
)

func useTempHome(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("temp-home redirection is unix-only")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestTokenRoundTrip(t *testing.T) {
	useTempHome(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	if err := SaveToken("main", "opaque-credential", exp); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	tok, err := LoadToken("main")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if tok.Value != "opaque-credential" {
		t.Errorf("Value = %q", tok.Value)
	}
	if !tok.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, exp)
	}

	info, err := os.Stat(TokenPath("main"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 0600", perm)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	useTempHome(t)
	if err := SaveToken("main", "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken("main"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestMissingTokenFile(t *testing.T) {
	useTempHome(t)
	if _, err := LoadToken("main"); err == nil {
		t.Error("expected error for missing token file")
	}
}

// A JWT credential's exp claim wins over whatever expiry the caller passes.
func TestJWTExpiryOverride(t *testing.T) {
	useTempHome(t)
	claimExp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw := unsignedJWT(t, claimExp)

	if err := SaveToken("main", raw, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	tok, err := LoadToken("main")
	if err != nil {
		t.Fatal(err)
	}
	if !tok.ExpiresAt.Equal(claimExp) {
		t.Errorf("ExpiresAt = %v, want exp claim %v", tok.ExpiresAt, claimExp)
	}
}

func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims := enc.EncodeToString([]byte(fmt.Sprintf(`{"sub":"7","exp":%d}`, exp.Unix())))
	return header + "." + claims + ".sig"
}
