// Package transport is the HTTP collaborator used to reach upstream services.
// It speaks JSON only and reports every failure as an apperr Transport error.
package transport

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

	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/logging"
)

// Request describes one call. Body is marshalled to JSON when non-nil.
type Request struct {
	Method  string
	Headers map[string]string
	Body    any
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	HTTPProxy string
}

// Client performs JSON requests against upstream endpoints.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

// NewClient builds a Client. An invalid proxy URL is logged and ignored.
func NewClient(opts Options) *Client {
	log := logging.WithComponent("transport")

	var rt http.RoundTripper = &http.Transport{}
	if opts.HTTPProxy != "" {
		proxyURL, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			log.Warn().Err(err).Str("proxy", opts.HTTPProxy).Msg("invalid proxy URL; requests will not use a proxy")
		} else {
			rt = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http: &http.Client{Transport: rt, Timeout: timeout},
		log:  log,
	}
}

// Fetch sends req to endpoint and returns the raw JSON body of a 2xx response.
// Any other status becomes a Transport error carrying the body's "message"
// field, or the status text when there is none.
func (c *Client) Fetch(ctx context.Context, endpoint string, req Request) (json.RawMessage, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperr.Transport("failed to marshal request body", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperr.Transport("failed to create request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperr.Transport("http request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport("failed to read response body", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Transport(errorMessage(resp.StatusCode, raw), nil)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, apperr.Transport("upstream returned invalid JSON", nil)
	}
	return json.RawMessage(raw), nil
}

func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("upstream returned status %d", status)
}
