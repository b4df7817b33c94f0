// Package jikan is a rate-limited client for the Jikan v4 REST API,
// the public MyAnimeList mirror the catalog is read from.
package jikan

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

	"github.com/mmcdole/animewiki/internal/config"
	"github.com/mmcdole/animewiki/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Jikan v4 endpoint
const DefaultBaseURL = "https://api.jikan.moe/v4"

// Error wraps a failed API call with the operation and path that produced it
type Error struct {
	Op     string
	Path   string
	Status int // 0 when no response was received
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("jikan %s %s: status %d: %v", e.Op, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("jikan %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client talks to the Jikan API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a Jikan client from catalog settings
func NewClient(cfg config.CatalogConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// doRequest performs a rate-limited GET against the API.
// 429 and 5xx responses are retried with exponential backoff.
func (c *Client) doRequest(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Op: op, Path: path, Err: err}
		}

		// Wait before retry (exponential backoff)
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &Error{Op: op, Path: path, Err: ctx.Err()}
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return nil, &Error{Op: op, Path: path, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, &Error{Op: op, Path: path, Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("jikan request", "op", op, "url", reqURL, "attempt", attempt)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{Op: op, Path: path, Err: ctx.Err()}
			}
			c.logger.Error("jikan request failed", "op", op, "path", path, "error", err)
			return nil, &Error{Op: op, Path: path, Err: fmt.Errorf("%w: %v", domain.ErrServerOffline, err)}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &Error{Op: op, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, &Error{Op: op, Path: path, Status: resp.StatusCode, Err: domain.ErrNotFound}
		case resp.StatusCode == http.StatusBadRequest:
			return nil, &Error{Op: op, Path: path, Status: resp.StatusCode, Err: domain.ErrInvalidInput}
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &Error{Op: op, Path: path, Status: resp.StatusCode, Err: domain.ErrRateLimited}
		case resp.StatusCode >= 500:
			lastErr = &Error{Op: op, Path: path, Status: resp.StatusCode, Err: domain.ErrServerError}
		default:
			c.logger.Error("jikan request error", "status", resp.StatusCode, "body", string(body))
			return nil, &Error{Op: op, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
		}

		c.logger.Warn("jikan request will retry",
			"status", resp.StatusCode,
			"attempt", attempt,
			"maxRetries", c.maxRetries,
			"path", path,
		)
	}

	c.logger.Error("jikan request failed after retries", "op", op, "path", path, "error", lastErr)
	return nil, lastErr
}

// get fetches path and decodes the response envelope
func (c *Client) get(ctx context.Context, op, path string, query url.Values) (*envelope, error) {
	body, err := c.doRequest(ctx, op, path, query)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Op: op, Path: path, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return &env, nil
}

// decodeData unmarshals the envelope's data field into v
func decodeData(op, path string, env *envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Op: op, Path: path, Err: domain.ErrNotFound}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &Error{Op: op, Path: path, Err: fmt.Errorf("failed to parse data: %w", err)}
	}
	return nil
}

// itemPath builds /{kind}/{id}{suffix}
func itemPath(kind domain.MediaKind, id domain.MediaID, suffix string) string {
	return "/" + kind.String() + "/" + url.PathEscape(string(id)) + suffix
}
