package remote

import (
	"context"
	"errors"
	"net/http"
)

// TokenPair is the backend's authentication response.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Tenant   string `json:"tenant"`
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ErrNoSession indicates a refresh was attempted without stored tokens.
var ErrNoSession = errors.New("remote: no session tokens available")

// Login authenticates against the tenant and persists the returned token
// pair. Nothing is stored when the backend rejects the credentials or
// returns an incomplete pair.
func (c *Client) Login(ctx context.Context, email, password, tenant string) (TokenPair, error) {
	if err := c.tokens.SetTenant(tenant); err != nil {
		return TokenPair{}, err
	}
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/login/authenticate", nil,
		credentials{Email: email, Password: password, Tenant: tenant}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return pair, nil
	}
	if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Register creates an account on the tenant and persists the returned pair.
func (c *Client) Register(ctx context.Context, email, password, tenant string) (TokenPair, error) {
	if err := c.tokens.SetTenant(tenant); err != nil {
		return TokenPair{}, err
	}
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/login/register", nil,
		credentials{Email: email, Password: password, Tenant: tenant}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	if pair.AccessToken != "" && pair.RefreshToken != "" {
		if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
			return TokenPair{}, err
		}
	}
	return pair, nil
}

// Refresh exchanges the stored pair for a fresh one.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	access := c.tokens.AccessToken()
	refresh := c.tokens.RefreshToken()
	if access == "" || refresh == "" {
		return TokenPair{}, ErrNoSession
	}
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/login/refresh", nil,
		refreshRequest{AccessToken: access, RefreshToken: refresh}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	if pair.AccessToken != "" && pair.RefreshToken != "" {
		if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
			return TokenPair{}, err
		}
	}
	return pair, nil
}

// Logout clears the stored credentials.
func (c *Client) Logout() {
	c.tokens.Clear()
}

// Authenticated reports whether a full token pair is stored.
func (c *Client) Authenticated() bool {
	return c.tokens.Authenticated()
}
