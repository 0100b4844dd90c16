// Package api is the single gateway for calls to the LMS REST backend.
// It builds URLs, attaches the bearer token, encodes bodies and turns
// non-2xx responses into *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// TokenSource supplies the bearer token for authorized requests.
type TokenSource interface {
	Token() string
}

// Client performs requests against one backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger enables debug logging of requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL. An empty baseURL falls back to
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and, on success, decodes the JSON response into out.
// out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	raw, err := c.Raw(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || raw == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Raw sends req and returns the parsed JSON body. The body is nil when the
// response is not JSON or fails to parse.
func (c *Client) Raw(ctx context.Context, req Request) (json.RawMessage, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readJSON(resp)
	if err != nil {
		return nil, err
	}

	if c.log != nil {
		c.log.Debug("api request",
			"method", httpReq.Method,
			"url", httpReq.URL.String(),
			"status", resp.StatusCode,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, body)
	}

	return body, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.method()

	u := c.url(req)

	var (
		body        io.Reader
		contentType string
		err         error
	)
	if method != http.MethodGet && req.Body != nil {
		body, contentType, err = encodeBody(req.Body)
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if !req.Public {
		if tok := c.token(req); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	return httpReq, nil
}

func (c *Client) token(req Request) string {
	if req.Token != "" {
		return req.Token
	}
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) url(req Request) string {
	u := joinURL(c.baseURL, req.Path)

	q := encodeQuery(req.Query)
	if q == "" {
		return u
	}

	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q
}

// encodeBody returns the request body and the content type the gateway
// should set, if any.
func encodeBody(v any) (io.Reader, string, error) {
	switch b := v.(type) {
	case *Multipart:
		return b.Reader(), b.ContentType(), nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// readJSON reads the response body when it is declared as JSON. Malformed
// JSON yields a nil body, not an error.
func readJSON(resp *http.Response) (json.RawMessage, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	return json.RawMessage(trimmed), nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
