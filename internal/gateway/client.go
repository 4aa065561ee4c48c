// Package gateway talks to the MedLink REST backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Observer is told about every completed backend call. status is 0 when the
// call failed before a response arrived.
type Observer func(method, route string, status int, elapsed time.Duration)

// Client wraps interactions with the MedLink API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	observe    Observer
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithObserver installs a call observer.
func WithObserver(obs Observer) Option {
	return func(c *Client) { c.observe = obs }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if tokens == nil {
		tokens = NewMemoryTokens("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens exposes the token store the client authenticates with.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Get issues a GET and returns the decoded body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Do sends body as JSON (when non-nil) and decodes the JSON response.
// An empty response body decodes to nil.
func (c *Client) Do(ctx context.Context, method, path string, body any) (any, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, reader, contentType)
}

// FilePart is a file attached to a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Upload posts a multipart form built from fields and file.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, file *FilePart) (any, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, path, body, writer.FormDataContentType())
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := CurrentToken(ctx, c.tokens); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(method, path, 0, started)
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.record(method, path, resp.StatusCode, started)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized {
			if pin := pinFrom(ctx); pin != nil {
				pin.unauthorized.Store(true)
			} else {
				c.tokens.ClearToken(ctx)
			}
		}
		gwErr := &Error{
			Kind:       statusKind(resp.StatusCode),
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     detailOf(data),
		}
		if resp.StatusCode >= 500 {
			c.logger.Warn("backend error", slog.String("method", method), slog.String("path", path), slog.Int("status", resp.StatusCode))
		}
		return nil, gwErr
	}

	payload, err := decodeBody(data)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return payload, nil
}

func (c *Client) record(method, path string, status int, started time.Time) {
	if c.observe == nil {
		return
	}
	c.observe(method, RouteLabel(path), status, time.Since(started))
}

func decodeBody(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// detailOf pulls the backend's explanation out of an error body.
func detailOf(data []byte) string {
	payload, err := decodeBody(data)
	if err != nil {
		return ""
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// RouteLabel collapses identifiers in a backend path so metrics stay bounded,
// e.g. /purchases/requests/42/approve/ becomes /purchases/requests/{id}/approve/.
func RouteLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && strings.ContainsAny(seg, "0123456789") {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
