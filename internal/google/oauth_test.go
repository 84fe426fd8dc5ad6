package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv(AccessTokenEnv, "")
	t.Setenv(ClientIDEnv, "")
	t.Setenv(ClientSecretEnv, "")
}

func TestTokenSource_AccessTokenEnv(t *testing.T) {
	isolate(t)
	t.Setenv(AccessTokenEnv, "env-token")

	if !HasToken() {
		t.Error("HasToken() = false with GOOGLE_ACCESS_TOKEN set")
	}
	ts, err := TokenSource(context.Background())
	if err != nil {
		t.Fatalf("TokenSource() error = %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "env-token" {
		t.Errorf("AccessToken = %q, want env-token", tok.AccessToken)
	}
}

func TestTokenSource_NoToken(t *testing.T) {
	isolate(t)

	if HasToken() {
		t.Error("HasToken() = true without any token")
	}
	_, err := TokenSource(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("TokenSource() error = %v, want ErrNoToken", err)
	}
}

func TestTokenSource_CachedToken(t *testing.T) {
	isolate(t)

	cached := &oauth2.Token{
		AccessToken:  "cached",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := writeToken(cached); err != nil {
		t.Fatalf("writeToken() error = %v", err)
	}
	if !HasToken() {
		t.Error("HasToken() = false with a cached token")
	}

	if _, err := TokenSource(context.Background()); err == nil || !strings.Contains(err.Error(), ClientIDEnv) {
		t.Errorf("TokenSource() error = %v, want missing client credentials", err)
	}

	t.Setenv(ClientIDEnv, "id")
	t.Setenv(ClientSecretEnv, "secret")
	ts, err := TokenSource(context.Background())
	if err != nil {
		t.Fatalf("TokenSource() error = %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "cached" {
		t.Errorf("AccessToken = %q, want cached", tok.AccessToken)
	}
}

func TestReadToken_Invalid(t *testing.T) {
	isolate(t)

	path := TokenFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readToken(); err == nil {
		t.Error("readToken() accepted an invalid file")
	}

	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readToken(); err == nil {
		t.Error("readToken() accepted a file without a token")
	}
}

func TestAuthURL(t *testing.T) {
	isolate(t)

	if _, err := AuthURL(); err == nil {
		t.Error("AuthURL() without client credentials should fail")
	}

	t.Setenv(ClientIDEnv, "client-123")
	t.Setenv(ClientSecretEnv, "secret")
	url, err := AuthURL()
	if err != nil {
		t.Fatalf("AuthURL() error = %v", err)
	}
	for _, want := range []string{"client_id=client-123", "access_type=offline", "calendar"} {
		if !strings.Contains(url, want) {
			t.Errorf("AuthURL() = %q, missing %q", url, want)
		}
	}
}
