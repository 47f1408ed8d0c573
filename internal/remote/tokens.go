package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps the session credentials in memory and mirrors them to a
// file so they survive restarts.
type TokenStore struct {
	mu      sync.Mutex
	path    string
	access  string
	refresh string
	tenant  string
}

type tokenFile struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Tenant       string `json:"tenant,omitempty"`
}

// NewTokenStore builds a store backed by path. An empty path keeps tokens in
// memory only.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads previously persisted credentials. A missing file is not an
// error; the store simply starts empty.
func (t *TokenStore) Load() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remote: read tokens: %w", err)
	}
	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("remote: parse tokens: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = f.AccessToken
	t.refresh = f.RefreshToken
	t.tenant = f.Tenant
	return nil
}

func (t *TokenStore) persistLocked() error {
	if t.path == "" {
		return nil
	}
	data, err := json.Marshal(tokenFile{AccessToken: t.access, RefreshToken: t.refresh, Tenant: t.tenant})
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		return fmt.Errorf("remote: write tokens: %w", err)
	}
	return nil
}

// SetTokens stores a fresh access/refresh pair.
func (t *TokenStore) SetTokens(access, refresh string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = access
	t.refresh = refresh
	return t.persistLocked()
}

// SetTenant stores the tenant partition identifier.
func (t *TokenStore) SetTenant(tenant string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tenant = tenant
	return t.persistLocked()
}

// AccessToken returns the current access token, possibly empty.
func (t *TokenStore) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access
}

// RefreshToken returns the current refresh token, possibly empty.
func (t *TokenStore) RefreshToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refresh
}

// Tenant returns the stored tenant, falling back to the tenant claim inside
// the access token when none was stored explicitly.
func (t *TokenStore) Tenant() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tenant != "" {
		return t.tenant
	}
	return tenantFromToken(t.access)
}

// Authenticated reports whether both tokens are present.
func (t *TokenStore) Authenticated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access != "" && t.refresh != ""
}

// Clear wipes all credentials, reporting whether anything was present. The
// report lets callers fire forced-logout side effects exactly once.
func (t *TokenStore) Clear() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	had := t.access != "" || t.refresh != "" || t.tenant != ""
	t.access, t.refresh, t.tenant = "", "", ""
	if err := t.persistLocked(); err != nil {
		return had
	}
	return had
}

// tenantFromToken decodes the tenant claim out of the JWT payload without
// verifying the signature; the backend is the verifier, the client only
// routes.
func tenantFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	tenant, _ := claims["tenant"].(string)
	return tenant
}
