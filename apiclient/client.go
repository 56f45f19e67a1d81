// Package apiclient is the typed client for the faculty REST backend. Every
// endpoint answers with the same envelope; requests carry a bearer access
// token that is refreshed at most once on a 401 before the original request
// is retried a single time.
// File: apiclient/client.go
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"fme-portal/logger"
)

// ErrSessionExpired means the refresh token was rejected; local tokens are
// cleared and the caller should send the user back to sign-in.
var ErrSessionExpired = errors.New("apiclient: session expired")

// Envelope is the response wrapper every backend endpoint uses.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Path      string          `json:"path,omitempty"`
}

// TokenPair is the bearer access/refresh pair issued by the backend.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client talks to the backend.
type Client struct {
	baseURL *url.URL
	hc      *http.Client

	mu     sync.Mutex
	tokens TokenPair
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Addr    string
	Timeout time.Duration
}

// NewClient builds a client for the given backend address.
func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("apiclient: addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return nil, errors.New("apiclient: invalid addr")
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{baseURL: u, hc: &http.Client{Timeout: timeout}}, nil
}

// SetTokens installs the bearer pair, e.g. after a backend sign-in.
func (c *Client) SetTokens(t TokenPair) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// Tokens returns the current pair; empty after a failed refresh.
func (c *Client) Tokens() TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// accessTokenExpired inspects the unverified exp claim. A token we cannot
// parse is treated as live and left for the server to judge.
func accessTokenExpired(token string) bool {
	if token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}

// doJSON performs one request against the backend, refreshing the access
// token at most once: proactively when it is visibly expired, reactively on
// a 401. The original request is retried exactly once after a refresh.
func (c *Client) doJSON(method, path string, body, out interface{}) error {
	if accessTokenExpired(c.Tokens().AccessToken) {
		if err := c.refresh(); err != nil {
			return err
		}
	}

	status, err := c.attempt(method, path, body, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if err := c.refresh(); err != nil {
			return err
		}
		status, err = c.attempt(method, path, body, out)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return ErrSessionExpired
		}
	}
	return nil
}

// attempt sends the request once and decodes the envelope.
func (c *Client) attempt(method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Tokens().AccessToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	if !env.Success {
		return resp.StatusCode, fmt.Errorf("apiclient: %s %s: %s", method, path, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("apiclient: decode data of %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// refresh exchanges the refresh token for a new pair. A refresh failure
// clears both tokens.
func (c *Client) refresh() error {
	c.mu.Lock()
	refreshToken := c.tokens.RefreshToken
	c.mu.Unlock()

	if refreshToken == "" {
		c.SetTokens(TokenPair{})
		return ErrSessionExpired
	}

	payload, _ := json.Marshal(map[string]string{"refreshToken": refreshToken})
	req, err := http.NewRequest(http.MethodPost, c.baseURL.JoinPath("/auth/refresh").String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logger.Warn.Printf("[apiclient.refresh] refresh rejected with status %d", resp.StatusCode)
		c.SetTokens(TokenPair{})
		return ErrSessionExpired
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.SetTokens(TokenPair{})
		return ErrSessionExpired
	}
	var pair TokenPair
	if !env.Success || json.Unmarshal(env.Data, &pair) != nil || pair.AccessToken == "" {
		c.SetTokens(TokenPair{})
		return ErrSessionExpired
	}

	c.SetTokens(pair)
	return nil
}

// ---------------- resource helpers ----------------

// BannerDTO is a home-page banner as served by the backend.
type BannerDTO struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	LinkURL  string `json:"linkUrl,omitempty"`
}

// NewsDTO is a news article as served by the backend.
type NewsDTO struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt,omitempty"`
}

// ProgramDTO is a degree program as served by the backend.
type ProgramDTO struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// GetBanners fetches all banners.
func (c *Client) GetBanners() ([]BannerDTO, error) {
	var out []BannerDTO
	if err := c.doJSON(http.MethodGet, "/banners", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNews fetches all news items.
func (c *Client) GetNews() ([]NewsDTO, error) {
	var out []NewsDTO
	if err := c.doJSON(http.MethodGet, "/news", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNewsByID fetches one article.
func (c *Client) GetNewsByID(id int) (NewsDTO, error) {
	var out NewsDTO
	err := c.doJSON(http.MethodGet, fmt.Sprintf("/news/%d", id), nil, &out)
	return out, err
}

// GetPrograms fetches all degree programs.
func (c *Client) GetPrograms() ([]ProgramDTO, error) {
	var out []ProgramDTO
	if err := c.doJSON(http.MethodGet, "/programs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNews creates an article.
func (c *Client) CreateNews(n NewsDTO) (NewsDTO, error) {
	var out NewsDTO
	err := c.doJSON(http.MethodPost, "/news", n, &out)
	return out, err
}

// UpdateNews updates an article.
func (c *Client) UpdateNews(n NewsDTO) error {
	return c.doJSON(http.MethodPut, fmt.Sprintf("/news/%d", n.ID), n, nil)
}

// DeleteNews removes an article.
func (c *Client) DeleteNews(id int) error {
	return c.doJSON(http.MethodDelete, fmt.Sprintf("/news/%d", id), nil, nil)
}
