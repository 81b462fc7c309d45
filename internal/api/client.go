// Package api is the client for the food-recognition backend.
//
// Every remote operation is one method on Client. Requests are
// form-encoded (POST) or carry a query string (GET); responses are JSON.
// A call makes a single attempt: there are no retries and no client-side
// timeout beyond what the caller's context imposes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/baobabichh/diabetic-diary-app/internal/middleware"
)

// TokenSource supplies the session token attached as the "uuid" parameter.
// *session.Session satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to the backend.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokens      TokenSource
	middlewares []middleware.Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is still
// wrapped with the client middlewares.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport appends round-tripper middlewares after the default request
// id and logging ones.
func WithTransport(mws ...middleware.Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mws...)
	}
}

// WithMetrics records every call in m.
func WithMetrics(m *middleware.Metrics) Option {
	return WithTransport(m.Transport)
}

// New creates a Client for the backend at baseURL. tokens may be nil for a
// client that only registers or logs in.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{},
		tokens:      tokens,
		middlewares: []middleware.Middleware{middleware.RequestID, middleware.Logging},
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Transport = middleware.Chain(hc.Transport, c.middlewares...)
	c.httpClient = &hc
	return c, nil
}

// token returns the session token, or "" when signed out. The backend
// rejects the call in that case.
func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	t, _ := c.tokens.Token()
	return t
}

// errorBody is the JSON body the backend sends with a non-2xx status.
type errorBody struct {
	Msg string `json:"Msg"`
}

// do performs one call. On a non-2xx status it returns *Error carrying the
// backend message or fallback. On success the body is decoded into out
// unless out is nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, fallback string, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path

	var body io.Reader
	if method == http.MethodGet {
		u.RawQuery = params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Msg: fallback}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Msg != "" {
			apiErr.Msg = eb.Msg
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	// Msg is the backend's message, or the operation's fallback text when
	// the body carried none.
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsUnauthorized reports whether err is a backend rejection of the session
// token or credentials.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
