package yatai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// TokenHeader carries the API token on every yatai request.
const TokenHeader = "X-YATAI-API-TOKEN"

const requestIDHeader = "X-Request-Id"

var ErrInvalidEndpoint = errors.New("yatai endpoint is invalid")

// Client talks to the yatai REST API.
type Client struct {
	httpclient *http.Client
	endpoint   string
	token      string
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpclient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent to yatai.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for endpoint authenticated with token.
func NewClient(endpoint, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		httpclient: new(http.Client),
		endpoint:   strings.TrimSuffix(u.String(), "/"),
		token:      token,
		userAgent:  "bento-kaniko",
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Endpoint returns the normalised endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CurrentUser returns the user owning the token, or nil when yatai does not
// know one.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	return getOptional[User](ctx, c, "looking up current user", "api", "v1", "auth", "current")
}

// CurrentOrganization returns the organization of the token, or nil when
// yatai does not know one.
func (c *Client) CurrentOrganization(ctx context.Context) (*Organization, error) {
	return getOptional[Organization](ctx, c, "looking up current organization", "api", "v1", "current_org")
}

func (c *Client) apipath(path ...string) string {
	escaped := make([]string, 0, len(path)+1)
	escaped = append(escaped, c.endpoint)
	for _, p := range path {
		escaped = append(escaped, url.PathEscape(strings.Trim(p, "/")))
	}
	return strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method string, path ...string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, c.apipath(path...), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	return resp, nil
}

// getOptional decodes a JSON resource, mapping 404 to a nil result.
func getOptional[T any](ctx context.Context, c *Client, action string, path ...string) (*T, error) {
	resp, err := c.do(ctx, http.MethodGet, path...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return unmarshalJSONResponse[T](resp, action)
}
