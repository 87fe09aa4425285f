package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"sermonmux/internal/services"
)

// ScopeYouTubeUpload is the only scope requested.
const ScopeYouTubeUpload = "https://www.googleapis.com/auth/youtube.upload"

// LoadConfig reads the client secrets file.
func LoadConfig(secretsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "read client secrets", secretsPath, err)
	}
	cfg, err := google.ConfigFromJSON(data, ScopeYouTubeUpload)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "parse client secrets", secretsPath, err)
	}
	return cfg, nil
}

// LoadToken reads a stored token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "read token", path+" (run 'sermonmux auth')", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "parse token", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "parse token", path+" holds no credentials", nil)
	}
	return &tok, nil
}

// SaveToken writes tok atomically with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("save token: nil token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

// persistingSource saves every newly minted token.
type persistingSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// Files names the credential files on disk.
type Files struct {
	ClientSecrets string
	Token         string
}

// HTTPClient returns a client that attaches and refreshes the stored token.
// Both files must exist; a missing file is a configuration error.
func HTTPClient(ctx context.Context, files Files, timeout time.Duration) (*http.Client, error) {
	cfg, err := LoadConfig(files.ClientSecrets)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(files.Token)
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base: cfg.TokenSource(ctx, tok),
		path: files.Token,
		last: tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	client.Timeout = timeout
	return client, nil
}

// AuthCodeURL returns the consent URL for the copy/paste authorization flow.
func AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, cfg *oauth2.Config, code, tokenPath string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, services.Wrap(services.ErrValidation, "credentials", "exchange", "authorization code is empty", nil)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "credentials", "exchange", "", err)
	}
	if err := SaveToken(tokenPath, tok); err != nil {
		return nil, services.Wrap(services.ErrIO, "credentials", "save token", tokenPath, err)
	}
	return tok, nil
}

// Check reports whether both credential files load. Used by doctor.
func Check(files Files) error {
	if _, err := LoadConfig(files.ClientSecrets); err != nil {
		return err
	}
	_, err := LoadToken(files.Token)
	return err
}
