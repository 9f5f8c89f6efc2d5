// Package api talks to the remote events service.
package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

const DefaultBaseURL = "http://localhost:5000"

// Request describes a single call to the events service.
type Request struct {
	Method string
	Path   string
	// Body is JSON-encoded unless it is already a []byte or json.RawMessage.
	Body   any
	Header http.Header
}

// Client is a JSON-over-HTTP client for the events service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a JSON success body into out (which may be nil).
// Non-2xx responses yield *APIError. A body that cannot be parsed is
// treated as absent and leaves out untouched, including valid JSON of the
// wrong shape.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	url := req.Path
	if !strings.HasPrefix(url, "http") {
		url = c.baseURL + req.Path
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	hasBody := req.Body != nil
	if hasBody {
		data, err := encodeBody(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if hasBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Cache-Control", "no-store")
	httpReq.Header.Set("Pragma", "no-cache")
	httpReq.Header.Set("Accept-Encoding", "br, gzip")
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("events api call",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", httpReq.Header.Get("X-Request-ID"),
	)

	raw, err := readBody(resp)
	if err != nil {
		c.logger.Warn("read response body", "url", url, "error", err)
		raw = nil
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, url, parseDetails(raw, isJSON))
	}

	if out == nil || !isJSON || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		c.logger.Warn("discard malformed response", "url", url)
		return nil
	}
	decode(c.logger, url, raw, out)
	return nil
}

// decode unmarshals into a fresh value of out's type and copies it over only
// on success, so a body with the wrong shape never half-fills out.
func decode(logger *slog.Logger, url string, raw []byte, out any) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		logger.Warn("discard response for non-pointer target", "url", url, "type", fmt.Sprintf("%T", out))
		return
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		logger.Warn("discard unparseable response", "url", url, "error", err)
		return
	}
	rv.Elem().Set(tmp.Elem())
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(v)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// parseDetails decodes an error body for APIError.Details.
func parseDetails(raw []byte, isJSON bool) any {
	if len(raw) == 0 {
		return nil
	}
	if !isJSON {
		return string(raw)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
