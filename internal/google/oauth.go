package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/inboxagent/internal/logging"
)

const (
	AccessTokenEnv  = "GOOGLE_ACCESS_TOKEN"
	ClientIDEnv     = "GOOGLE_CLIENT_ID"
	ClientSecretEnv = "GOOGLE_CLIENT_SECRET"

	oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"
)

// ErrNoToken is returned when neither GOOGLE_ACCESS_TOKEN nor a cached token
// is available.
var ErrNoToken = errors.New("no Google OAuth token found")

// Scopes are the OAuth scopes the calendar tools need.
var Scopes = []string{gcal.CalendarScope}

// OAuthConfig returns the OAuth2 configuration built from GOOGLE_CLIENT_ID
// and GOOGLE_CLIENT_SECRET.
func OAuthConfig() (*oauth2.Config, error) {
	id, secret := os.Getenv(ClientIDEnv), os.Getenv(ClientSecretEnv)
	if id == "" || secret == "" {
		return nil, fmt.Errorf("%s and %s must be set", ClientIDEnv, ClientSecretEnv)
	}
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		RedirectURL:  oobRedirectURL,
		Scopes:       Scopes,
	}, nil
}

// AuthURL returns the URL the user visits to authorize calendar access.
func AuthURL() (string, error) {
	conf, err := OAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

// SaveToken exchanges an authorization code for a token and caches it.
func SaveToken(ctx context.Context, authCode string) error {
	conf, err := OAuthConfig()
	if err != nil {
		return err
	}
	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return writeToken(t)
}

// HasToken reports whether a token is available without touching the network.
func HasToken() bool {
	if os.Getenv(AccessTokenEnv) != "" {
		return true
	}
	_, err := os.Stat(TokenFile())
	return err == nil
}

// TokenSource returns a token source for the Google APIs. GOOGLE_ACCESS_TOKEN
// wins over the cached token; the cached token is refreshed when it expires.
func TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if token := os.Getenv(AccessTokenEnv); token != "" {
		slog.Debug("Using Google access token from environment", slog.String("token", logging.SanitizeToken(token)))
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	}

	t, err := readToken()
	if err != nil {
		return nil, err
	}
	conf, err := OAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("cached token cannot be refreshed: %w", err)
	}
	return conf.TokenSource(ctx, t), nil
}

// TokenFile is the path of the cached token.
func TokenFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "inboxagent", "google.token")
}

func writeToken(t *oauth2.Token) error {
	path := TokenFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func readToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(TokenFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: set %s or run inboxagent google-auth", ErrNoToken, AccessTokenEnv)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var t oauth2.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", TokenFile(), err)
	}
	if t.AccessToken == "" && t.RefreshToken == "" {
		return nil, fmt.Errorf("invalid token file %s: no token", TokenFile())
	}
	return &t, nil
}
