// Package diskstore is the Remote Store Adapter (L1): typed operations
// over a hierarchical, HTTP-accessed cloud file host, modeled on the
// Yandex Disk REST API. It sends each path to the store exactly as the
// caller passes it (the adapter itself neither normalizes nor validates
// paths), retries idempotent transient failures, and never lets a raw HTTP
// status code leak past its own sentinel error types.
package diskstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the production Yandex Disk REST API v1 endpoint.
const DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

// Retry policy: up to 3 attempts (the first try plus maxRetries
// retries), exponential backoff base=1s, factor 2x, with jitter to
// avoid thundering herd across concurrently-retrying requests.
const (
	maxRetries     = 2
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// TokenSource provides OAuth2 bearer tokens for the remote store.
// Defined at the consumer (diskstore) per "accept interfaces, return
// structs" — construction of a concrete TokenSource lives in the
// bootstrap package that wires this client together.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the remote hierarchical store. It handles
// request construction, authentication, retry with exponential backoff,
// and error classification. One Client is constructed at process start
// and shared by every request — it holds no per-request mutable state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
	debug      bool

	// sleepFunc waits between retries. Defaults to timeSleep; tests
	// override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a remote store client. baseURL is typically
// DefaultBaseURL. The structured {requestId, stage, normalizedPath} log
// record emitted for every operation is off until SetDebug enables it.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = "carphotos/0.1"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		sleepFunc:  timeSleep,
	}
}

// SetDebug toggles the per-call structured request log (DEBUG_DISK_CALLS).
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// callLog emits the structured {requestId, stage, normalizedPath} record
// when debug logging is enabled.
func (c *Client) callLog(requestID, stage, normalizedPath string) {
	if !c.debug {
		return
	}

	c.logger.Debug("disk store call",
		slog.String("request_id", requestID),
		slog.String("stage", stage),
		slog.String("normalized_path", normalizedPath),
	)
}

// retryOpts controls per-call retry behavior beyond the default
// classification — specifically whether 409 Conflict should be treated
// as retryable (ensureDir's concurrent-creation case) rather than a
// terminal error (move's destination-conflict case).
type retryOpts struct {
	retry409 bool
}

// do executes an authenticated HTTP request against the store with
// automatic retry on transient errors. The caller is responsible for
// closing the response body on success.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, opts retryOpts) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int

	for {
		if err := rewindBody(body); err != nil {
			return nil, err
		}

		resp, err := c.doOnce(ctx, method, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("diskstore: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				if sleepErr := c.backoffSleep(ctx, attempt, "network error retry"); sleepErr != nil {
					return nil, sleepErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("diskstore: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if c.shouldRetry(resp.StatusCode, opts) && attempt < maxRetries {
			if sleepErr := c.backoffSleepResp(ctx, resp, attempt, "HTTP error retry"); sleepErr != nil {
				return nil, sleepErr
			}

			attempt++

			continue
		}

		return nil, c.terminalError(resp.StatusCode, errBody)
	}
}

func (c *Client) shouldRetry(statusCode int, opts retryOpts) bool {
	if statusCode == http.StatusConflict {
		return opts.retry409
	}

	return isRetryable(statusCode)
}

func (c *Client) doOnce(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("diskstore: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("diskstore: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "OAuth "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) terminalError(statusCode int, body []byte) *StoreError {
	return &StoreError{
		StatusCode: statusCode,
		Message:    string(body),
		Err:        classifyStatus(statusCode),
	}
}

func (c *Client) backoffSleep(ctx context.Context, attempt int, reason string) error {
	backoff := c.calcBackoff(attempt)
	c.logger.Warn(reason, slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))

	if err := c.sleepFunc(ctx, backoff); err != nil {
		return fmt.Errorf("diskstore: request canceled: %w", err)
	}

	return nil
}

func (c *Client) backoffSleepResp(ctx context.Context, resp *http.Response, attempt int, reason string) error {
	backoff := c.retryBackoff(resp, attempt)
	c.logger.Warn(reason,
		slog.Int("status", resp.StatusCode),
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	if err := c.sleepFunc(ctx, backoff); err != nil {
		return fmt.Errorf("diskstore: request canceled: %w", err)
	}

	return nil
}

// retryBackoff honors Retry-After on 429, otherwise computes exponential backoff.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand

	return time.Duration(backoff + jitter)
}

// newRequestID returns a fresh per-call correlation ID, generated once
// per top-level adapter call and attached to that call's debug log record.
func newRequestID() string {
	return uuid.NewString()
}

func rewindBody(body io.Reader) error {
	if body == nil {
		return nil
	}

	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("diskstore: rewinding request body for retry: %w", err)
		}
	}

	return nil
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
