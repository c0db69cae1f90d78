package editsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/google/uuid"
)

// Response is what came back from the server for a request that reached it.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// Poster sends a JSON body to a path on the server.
// A non-nil error means the request never got a response (the connection failed or was closed).
// Any response, whatever its status, is returned with a nil error.
type Poster interface {
	Post(ctx context.Context, path string, body []byte) (*Response, error)
}

// StatusError is returned when the server answers with something other than 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nvs: status %d", e.StatusCode)
	}
	return fmt.Sprintf("nvs: status %d: %s", e.StatusCode, e.Body)
}

// HTTPPoster talks to an NVS server over HTTP.
type HTTPPoster struct {
	BaseURL    string
	ClientID   uuid.UUID
	HTTPClient *http.Client

	timeout    time.Duration
	hasTimeout bool
}

const defaultTimeout = 30 * time.Second

// Option configures an HTTPPoster.
type Option func(*HTTPPoster)

// WithTimeout sets the HTTP timeout.
// A client passed with WithHTTPClient is copied before the timeout is applied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPPoster) { p.timeout, p.hasTimeout = d, true }
}

// WithClientID sets the ID sent in the client ID header.
func WithClientID(id uuid.UUID) Option {
	return func(p *HTTPPoster) { p.ClientID = id }
}

// WithHTTPClient replaces the underlying HTTP client. A nil client keeps the default one.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPPoster) { p.HTTPClient = c }
}

// NewHTTPPoster creates a poster for the server at baseURL, for example "http://192.168.4.1".
func NewHTTPPoster(baseURL string, opts ...Option) *HTTPPoster {
	p := &HTTPPoster{BaseURL: strings.TrimRight(baseURL, "/")}
	for _, o := range opts {
		o(p)
	}

	switch {
	case p.HTTPClient == nil:
		timeout := defaultTimeout
		if p.hasTimeout {
			timeout = p.timeout
		}
		p.HTTPClient = &http.Client{Timeout: timeout}
	case p.hasTimeout:
		c := *p.HTTPClient
		c.Timeout = p.timeout
		p.HTTPClient = &c
	}
	return p
}

func (p *HTTPPoster) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return nil, "", err
	}

	requestID := uuid.NewString()
	req.Header.Set(commons.RequestIDHeader, requestID)
	if p.ClientID != uuid.Nil {
		req.Header.Set(commons.ClientIDHeader, p.ClientID.String())
	}

	return req, requestID, nil
}

// Post sends body to path as JSON.
func (p *HTTPPoster) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	req, requestID, err := p.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A body cut short still means the connection went away.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody, RequestID: requestID}, nil
}

// Fetch reads the listing at path.
func (p *HTTPPoster) Fetch(ctx context.Context, path string) (commons.Listing, error) {
	var listing commons.Listing

	req, _, err := p.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return listing, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return listing, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return listing, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return listing, fmt.Errorf("decoding listing: %w", err)
	}
	return listing, nil
}
