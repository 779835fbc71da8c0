package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
)

// DefaultScopes covers reading document metadata and sending notification mail.
var DefaultScopes = []string{
	drive.DriveMetadataReadonlyScope,
	gmail.GmailSendScope,
}

// ErrNoToken indicates the token file is missing; run `docwatch auth` first.
var ErrNoToken = errors.New("google: no saved token")

// credentialsType peeks at the "type" field of a Google credentials file.
type credentialsType struct {
	Type string `json:"type"`
}

// LoadOAuthConfig reads an OAuth client credentials file
// (the "installed" or "web" JSON downloaded from the Cloud console).
func LoadOAuthConfig(credentialsFile string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// NewTokenSource builds a token source from a credentials file.
//
// Service account keys are used directly. OAuth client files need a token
// previously saved at tokenFile; refreshed tokens are written back to it.
func NewTokenSource(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var ct credentialsType
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	if ct.Type == "service_account" {
		jwt, err := googleoauth.JWTConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		return jwt.TokenSource(ctx), nil
	}

	cfg, err := googleoauth.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}, nil
}

// LoadToken reads a JSON-encoded oauth2.Token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNoToken, path)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// persistingTokenSource saves the token whenever the underlying source refreshes it.
type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := SaveToken(p.path, tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

// UnavailableTokenSource fails every call with cause wrapped as
// ErrUnauthorized, so provider calls fail fast as permanent errors until
// credentials are fixed.
func UnavailableTokenSource(cause error) oauth2.TokenSource {
	return unavailableTokenSource{err: fmt.Errorf("%w: %w", ErrUnauthorized, cause)}
}

type unavailableTokenSource struct {
	err error
}

// Token implements oauth2.TokenSource.
func (u unavailableTokenSource) Token() (*oauth2.Token, error) {
	return nil, u.err
}
