// Package cloudcontroller is a minimal client for the Cloud Controller v2 API:
// endpoint discovery, space and application lookup, application summaries
// and state changes.
package cloudcontroller

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// requestTimeout bounds a single controller round trip.
	requestTimeout = 30 * time.Second
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 1 << 20
)

// Client talks to one controller with one bearer token.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithSkipTLSVerify disables server certificate verification.
func WithSkipTLSVerify(skip bool) ClientOption {
	return func(c *Client) {
		c.httpClient = NewHTTPClient(skip)
	}
}

// NewHTTPClient returns the HTTP client used for controller and UAA calls.
func NewHTTPClient(skipTLSVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}
	return &http.Client{Transport: transport, Timeout: requestTimeout}
}

// NewClient creates a client for the controller at apiURL authenticating with
// token. The token may carry its "bearer " prefix or not.
func NewClient(apiURL, token string, opts ...ClientOption) (*Client, error) {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		return nil, errors.New("controller api url is required")
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse controller URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("controller URL %q must be absolute", apiURL)
	}

	c := &Client{
		baseURL:    baseURL,
		token:      BearerToken(token),
		httpClient: NewHTTPClient(false),
		log:        slog.With("component", "cloudcontroller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the authorization header value used by the client.
func (c *Client) Token() string {
	return c.token
}

// BearerToken normalizes token to the "bearer <token>" header form.
func BearerToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return "bearer " + strings.TrimSpace(token[7:])
	}
	return "bearer " + token
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	c.log.Debug("Controller request.", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, path, newAPIError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
