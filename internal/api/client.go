// Package api is the typed client for the dealership analytics HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/session"
)

// RequestIDHeader carries a per-request id the server can log.
const RequestIDHeader = "X-Request-ID"

// Credentials supplies the bearer token and revokes it on a 401.
// *session.Store satisfies it.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Logout(ctx context.Context, reason session.LogoutReason) error
}

// Client talks to the dealership analytics API.
// Every call is a single round trip: nothing is retried or cached.
type Client struct {
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for baseURL. creds may be nil for a client that only
// signs in.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		// No timeout: a slow upload is allowed to take as long as it takes.
		httpClient: &http.Client{},
		logger:     slog.Default(),
		userAgent:  "showroom",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call.
type request struct {
	body        io.Reader
	query       url.Values
	op          string
	method      string
	path        string
	contentType string
	// authenticated requests send the bearer token and treat 401 as a revoked session.
	authenticated bool
}

// do performs req and decodes a 2xx JSON body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	if req.authenticated && c.creds != nil {
		token, tokenErr := c.creds.Token(ctx)
		if tokenErr != nil {
			return fmt.Errorf("failed to read session: %w", tokenErr)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("API request failed",
			"method", req.method,
			"path", req.path,
			"request_id", requestID,
			"error", err)
		return &RequestError{
			Op:  req.op,
			Err: fmt.Errorf("%w: %w", common.ErrNetworkFailure, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("API request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized && req.authenticated {
		if c.creds != nil {
			if logoutErr := c.creds.Logout(ctx, session.ReasonUnauthorized); logoutErr != nil {
				common.LogError(c.logger, logoutErr, "Failed to clear session after 401", common.Fields{"path": req.path})
			}
		}
		return fmt.Errorf("%s: %w", req.op, common.ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &RequestError{
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

// errorDetail pulls the server's explanation out of an error body.
// FastAPI-style {"detail": "..."} wins over {"message": "..."}.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if detail, ok := payload.Detail.(string); ok && detail != "" {
		return detail
	}
	return payload.Message
}
