// Package transport provides the throttled HTTP client every fetcher goes
// through. It applies source credentials, enforces a fixed post-request
// delay so a sequential fetch loop can never exceed a source's rate limit,
// and maps HTTP status codes onto the error taxonomy (404 not found, 429
// rate limited, 5xx source unavailable).
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response body is kept for the
// error message.
const maxErrorBody = 512

// Client is an HTTP client bound to one source API.
type Client struct {
	source  string
	baseURL string
	apiKey  string
	auth    Authenticator
	delay   time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL relative paths are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithAuth sets the authenticator and the credential it applies.
func WithAuth(auth Authenticator, apiKey string) Option {
	return func(c *Client) {
		c.auth = auth
		c.apiKey = apiKey
	}
}

// WithDelay sets the fixed pause inserted after every request. The pause is
// unconditional — it applies to error responses too, since a 429 consumed
// quota all the same.
func WithDelay(delay time.Duration) Option {
	return func(c *Client) { c.delay = delay }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.Timeout = timeout }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// New creates a client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		source: source,
		auth:   &NoAuth{},
		http:   &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the source name the client is bound to.
func (c *Client) Source() string { return c.source }

// resolve joins a path with the base URL. Absolute URLs pass through so a
// fetcher can follow links the API hands back.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.resolve(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewConfigError(c.source, fmt.Sprintf("invalid request URL %q", endpoint), err)
	}
	if len(query) > 0 {
		merged := req.URL.Query()
		for key, values := range query {
			for _, v := range values {
				merged.Add(key, v)
			}
		}
		req.URL.RawQuery = merged.Encode()
	}
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}
	req.Header.Set("Accept", "application/json, application/xml, text/xml")

	resp, err := c.http.Do(req)
	if throttleErr := c.throttle(ctx); throttleErr != nil && err == nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, throttleErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.ErrCanceled
		}
		return nil, &errors.APIError{Source: c.source, Endpoint: endpoint, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logging.Ctx(ctx).Debug().
			Str("source", c.source).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("source request rejected")
		return nil, errors.NewAPIError(c.source, resp.StatusCode, endpoint, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.APIError{Source: c.source, Endpoint: endpoint, Message: "reading response body", Err: err}
	}
	return body, nil
}

// throttle pauses for the configured delay, honoring cancellation.
func (c *Client) throttle(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.ErrCanceled
	case <-timer.C:
		return nil
	}
}

// GetJSON performs a throttled GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewParseError("json", c.resolve(path), "decoding response", err)
	}
	return nil
}

// GetRaw performs a throttled GET and returns the response body verbatim.
// Used for the XML endpoints.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.get(ctx, path, query)
}
