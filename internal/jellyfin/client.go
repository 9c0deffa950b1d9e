package jellyfin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond

	clientName    = "Reel"
	clientVersion = "1.0.0"
)

var _ domain.RemoteClient = (*Client)(nil)

// Device identifies this client installation to the server
type Device struct {
	ID   string
	Name string
}

// Client implements domain.RemoteClient for Jellyfin
type Client struct {
	baseURL    string
	token      string
	userID     uuid.UUID
	device     Device
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a new Jellyfin API client
func NewClient(baseURL, token string, userID uuid.UUID, device Device, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		device:  device,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retryDelay: baseRetryDelay,
		logger:     logger,
	}
	c.breaker = newBreaker(breakerName(c.baseURL), logger)
	return c
}

func breakerName(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "jellyfin"
	}
	return "jellyfin-" + u.Host
}

// newBreaker trips after 5 consecutive transport or 5xx failures and probes again after 30s.
// Auth and not-found answers prove the server is reachable and count as successes.
func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrAuthFailed) ||
				errors.Is(err, domain.ErrItemNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated HTTP request to the Jellyfin API through
// the circuit breaker. An open breaker fails fast with ErrServerOffline.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doWithRetry(ctx, method, path, query, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Debug("jellyfin request rejected by circuit breaker", "path", path)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	return resp, err
}

// doWithRetry includes retry logic with exponential backoff for 5xx server errors
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Wait before retry (exponential backoff)
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// Set Jellyfin auth headers
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Emby-Authorization", buildAuthHeader(c.device, c.token))
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("jellyfin request", "method", method, "path", path, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("jellyfin request failed", "path", path, "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrServerOffline, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, domain.ErrAuthFailed
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", path, domain.ErrItemNotFound)
		case resp.StatusCode >= 500:
			// Retry on 5xx server errors
			lastErr = &domain.ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
			c.logger.Warn("jellyfin server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", maxRetries,
				"path", path,
			)
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			c.logger.Error("jellyfin request error", "status", resp.StatusCode, "path", path, "body", string(respBody))
			return nil, &domain.ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		return respBody, nil
	}

	c.logger.Error("jellyfin request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

// getJSON performs a GET and decodes the JSON response into dest
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return unmarshal(body, dest)
}

func unmarshal(body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// send performs a request whose response body is ignored
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) error {
	_, err := c.doRequest(ctx, method, path, query, body)
	return err
}

func (c *Client) userPath(format string, args ...interface{}) string {
	return fmt.Sprintf("/Users/%s", c.userID) + fmt.Sprintf(format, args...)
}
