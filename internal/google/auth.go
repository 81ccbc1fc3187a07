package google

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pfrederiksen/meetup-events/internal/crypto"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// ErrNoToken is returned when no OAuth token has been stored yet.
var ErrNoToken = errors.New("no Google OAuth token stored, run the auth command first")

// LoadOAuthConfig reads an OAuth client credentials file downloaded from the
// Google Cloud console.
func LoadOAuthConfig(credentialsPath string, scopes ...string) (*oauth2.Config, error) {
	path, err := ledger.ExpandPath(credentialsPath)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = oobRedirectURL
	}
	return cfg, nil
}

// TokenStore persists an OAuth token as JSON, sealed when an encryptor is set.
type TokenStore struct {
	path string
	enc  *crypto.Encryptor
}

// NewTokenStore creates a store at path. enc may be nil.
func NewTokenStore(path string, enc *crypto.Encryptor) (*TokenStore, error) {
	if path == "" {
		return nil, errors.New("token path is required")
	}
	expanded, err := ledger.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return &TokenStore{path: expanded, enc: enc}, nil
}

// Path returns the token file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the stored token. Plaintext tokens are accepted even when an
// encryptor is configured; they are sealed on the next Save.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	if crypto.IsSealed(data) {
		if s.enc == nil {
			return nil, errors.New("token file is sealed but no token key is configured")
		}
		if data, err = s.enc.Open(data); err != nil {
			return nil, fmt.Errorf("opening token: %w", err)
		}
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return tok, nil
}

// Save writes tok with owner-only permissions.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if data, err = s.enc.Seal(data); err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := ledger.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out, reads the authorization code from in and exchanges it for a token.
func Authorize(ctx context.Context, cfg *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open this link in your browser and authorize access:\n\n%s\n\nEnter the authorization code: ", authURL)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading authorization code: %w", err)
		}
		return nil, errors.New("no authorization code entered")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return nil, errors.New("no authorization code entered")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// HTTPClient returns a client authorized with the stored token. Refreshed
// tokens are written back to store.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, store *TokenStore) (*http.Client, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		src:   cfg.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

type persistingSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	store *TokenStore
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.Save(tok); err != nil {
			logger.Warn("Failed to persist refreshed token", logger.Fields{
				"path":  p.store.Path(),
				"error": err.Error(),
			})
		}
	}
	return tok, nil
}
