// Package apiclient is the JSON HTTP client for the backend. Every request
// goes through the Interceptor, which attaches the bearer token and turns a
// 401 into a forced logout.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  zerolog.Logger
}

type Option func(*Client)

// WithTransport sets the round tripper, normally an *Interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.http.Jar = jar
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for baseURL. Request paths are resolved against it, so
// it always ends with a slash.
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient.New] base url is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[apiclient.New] parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient.New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL is the normalized base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HTTPClient is the underlying client, sharing the transport, jar and timeout.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// URL resolves path against the base URL. A leading slash does not escape the base path.
func (c *Client) URL(path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("[Client.URL] %s: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// Do sends body as JSON and decodes a successful response into out. Either may
// be nil. Every failure is returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Normalize(fmt.Errorf("[Client.Do] encode request: %w", err))
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, reader, out)
}

// Upload POSTs content as the multipart form file field and decodes the
// response into out.
func (c *Client) Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return Normalize(fmt.Errorf("[Client.Upload] create form file: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return Normalize(fmt.Errorf("[Client.Upload] read %s: %w", filename, err))
	}
	if err := form.Close(); err != nil {
		return Normalize(fmt.Errorf("[Client.Upload] close form: %w", err))
	}
	return c.send(ctx, http.MethodPost, path, form.FormDataContentType(), &buf, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	target, err := c.URL(path)
	if err != nil {
		return Normalize(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Normalize(err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return Normalize(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Normalize(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := FromResponse(resp.StatusCode, data)
		c.logger.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Str("kind", apiErr.Kind.String()).Msg(apiErr.Error())
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindMessage, Status: resp.StatusCode, Text: "invalid response body: " + err.Error(), cause: err}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
