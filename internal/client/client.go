// Package client is the HTTP client for the reservation backend's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/session"
)

const (
	// APIPrefix is the versioned base path every endpoint lives under
	APIPrefix = "/api/v1"

	// SessionExpiredMessage is shown when the backend rejects the credential
	SessionExpiredMessage = "Your session has expired. Please log in again."

	DefaultLoginPath     = "/login"
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
)

// Navigator is the port the client uses to tell the user about an expired
// session and to send them to the login view
type Navigator interface {
	Notify(message string)
	Redirect(path string)
}

type nopNavigator struct{}

func (nopNavigator) Notify(string)   {}
func (nopNavigator) Redirect(string) {}

// Client represents an HTTP client for the reservation API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenStore

	session       *session.Store
	navigator     Navigator
	loginPath     string
	redirectDelay time.Duration
	afterFunc     func(time.Duration, func())

	logger zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithSession makes a 401 clear the given session in addition to the credential
func WithSession(s *session.Store) Option {
	return func(c *Client) { c.session = s }
}

// WithNavigator sets the port used for the expired-session notice and redirect
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// WithLoginPath overrides the route the client redirects to after a 401
func WithLoginPath(path string) Option {
	return func(c *Client) { c.loginPath = path }
}

// WithRedirectDelay sets how long the notice stays up before the redirect
func WithRedirectDelay(d time.Duration) Option {
	return func(c *Client) { c.redirectDelay = d }
}

// WithScheduler replaces time.AfterFunc for the delayed redirect. Front ends
// without a page to keep on screen can run the redirect immediately.
func WithScheduler(after func(time.Duration, func())) Option {
	return func(c *Client) { c.afterFunc = after }
}

// WithTimeout sets the overall HTTP timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l.With().Str("component", "api-client").Logger() }
}

// New creates a new API client for the backend at serverURL.
// The /api/v1 prefix is appended unless serverURL already carries it.
func New(serverURL string, tokens auth.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: normalizeBaseURL(serverURL),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &bearerTransport{base: http.DefaultTransport, tokens: tokens},
		},
		navigator:     nopNavigator{},
		loginPath:     DefaultLoginPath,
		redirectDelay: DefaultRedirectDelay,
		afterFunc:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:        zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func normalizeBaseURL(serverURL string) string {
	base := strings.TrimRight(serverURL, "/")
	if !strings.HasSuffix(base, APIPrefix) {
		base += APIPrefix
	}
	return base
}

// BaseURL returns the resolved API base, including the version prefix
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client. Its transport is wrapped so the
// bearer token is still attached.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	hc := *httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &bearerTransport{base: base, tokens: c.tokens}
	c.httpClient = &hc
}

// bearerTransport attaches the stored credential to every outgoing request
type bearerTransport struct {
	base   http.RoundTripper
	tokens auth.TokenStore
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil {
		return t.base.RoundTrip(req)
	}

	token, err := t.tokens.LoadToken()
	if err != nil || token == "" {
		// No credential: send unauthenticated
		return t.base.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	return t.base.RoundTrip(r)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload interface{}) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
	}, nil
}

// do issues exactly one HTTP call and decodes a 2xx body into out
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if len(r.query) > 0 {
		req.URL.RawQuery = r.query.Encode()
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	requestID := ulid.Make().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("method", r.method).
			Str("path", r.path).
			Str("request_id", requestID).
			Msg("Request failed")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("API request")

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(r.method, r.path, resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// expireSession invalidates local state after a 401, tells the user, and
// schedules the redirect to login. The caller still receives the error.
func (c *Client) expireSession() {
	var err error
	if c.session != nil {
		err = c.session.Logout()
	} else if c.tokens != nil {
		err = c.tokens.DeleteToken()
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear stored credential")
	}

	c.navigator.Notify(SessionExpiredMessage)

	loginPath := c.loginPath
	nav := c.navigator
	c.afterFunc(c.redirectDelay, func() {
		nav.Redirect(loginPath)
	})
}
