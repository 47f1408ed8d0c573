// Package remote is the thin REST client for the multi-tenant backend. It
// has no caching, retry or offline behavior: every call hits the network,
// and a 401 clears the stored credentials and fires the registered
// forced-logout callback.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized indicates the backend rejected the session token.
var ErrUnauthorized = errors.New("remote: unauthorized")

// APIError carries a non-2xx backend response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: http %d: %s", e.Status, e.Body)
}

// Client talks to the REST backend.
type Client struct {
	base           string
	http           *http.Client
	tokens         *TokenStore
	logger         *slog.Logger
	onUnauthorized func()
}

// NewClient builds Client for the given base URL.
func NewClient(base string, tokens *TokenStore, logger *slog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		logger: logger,
	}
}

// OnUnauthorized registers the forced-logout callback. It fires at most once
// per session: the first 401 clears the credentials, and later calls find
// nothing left to clear.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// Tokens exposes the credential store.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// do issues one request. The tenant segment is prepended to the path when
// known, the bearer header is attached when a token is present, and out is
// decoded from a JSON response body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.base
	if tenant := c.tokens.Tenant(); tenant != "" {
		target += "/" + url.PathEscape(tenant)
	}
	target += path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func (c *Client) handleUnauthorized() {
	if !c.tokens.Clear() {
		return
	}
	if c.logger != nil {
		c.logger.Warn("session rejected, credentials cleared")
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func pageQuery(description string, limit, offset int) url.Values {
	q := url.Values{}
	if description != "" {
		q.Set("description", description)
	}
	if limit > 0 {
		q.Set("limit", itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", itoa(offset))
	}
	return q
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
