package device

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/seltzinger/airsync/internal/utils"
)

// StatusError reports a device endpoint answering with an unexpected
// HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device returned status %d for %s", e.StatusCode, e.URL)
}

// Client talks to one card over its HTTP CGI endpoints. All methods are
// safe for use from a single goroutine at a time; the firmware check
// cache is the only shared state and is mutex-guarded.
type Client struct {
	baseURL    string
	host       string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration

	mu            sync.Mutex
	uploadChecked bool
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request round trip. Leave unset for streaming
// downloads of unknown duration.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetry overrides the retry budget for CGI requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// NewClient creates a client for the card at baseURL
// (e.g. http://flashair).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		maxRetries: utils.DefaultMaxRetries,
		retryDelay: utils.DefaultRetryDelayMs * time.Millisecond,
	}
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		c.host = u.Host
	} else {
		c.host = c.baseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured device URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Host returns the device host, used to key stored credentials.
func (c *Client) Host() string { return c.host }

func (c *Client) get(ctx context.Context, cgiPath string, query url.Values) (*http.Response, error) {
	u := c.baseURL + cgiPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.do(ctx, u)
}

// do performs one GET with bounded retry. Transport failures and
// 429/5xx answers are retried with exponential backoff; any other status
// is handed back for the caller to classify.
func (c *Client) do(ctx context.Context, u string) (*http.Response, error) {
	traceID := uuid.New().String()
	logger := log.WithField("traceId", traceID).WithField("url", u)
	logger.Debug("device request starting")
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		var retryAfter string
		if err == nil {
			if !retryableStatus(resp.StatusCode) {
				logger.WithField("status", resp.StatusCode).
					WithField("duration_ms", time.Since(start).Milliseconds()).
					Debug("device request completed")
				return resp, nil
			}
			retryAfter = resp.Header.Get("Retry-After")
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = &StatusError{URL: u, StatusCode: resp.StatusCode}
		} else {
			lastErr = fmt.Errorf("device unreachable: %w", err)
		}

		if attempt < c.maxRetries {
			delay := backoffDelay(c.retryDelay, attempt, retryAfter)
			logger.WithError(lastErr).
				WithField("attempt", attempt+1).
				WithField("delay_ms", delay.Milliseconds()).
				Warn("retrying device request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	logger.WithError(lastErr).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Error("device request failed after retries")
	return nil, lastErr
}

// getText runs a CGI GET and returns the response body, requiring
// status 200.
func (c *Client) getText(ctx context.Context, cgiPath string, query url.Values) (string, error) {
	resp, err := c.get(ctx, cgiPath, query)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fetch opens a streaming read of a remote file path. Only status 200 is
// success; the caller owns the returned body. Size is -1 when the device
// does not announce a content length.
func (c *Client) Fetch(ctx context.Context, remotePath string) (io.ReadCloser, int64, error) {
	u := c.baseURL + (&url.URL{Path: remotePath}).EscapedPath()
	resp, err := c.do(ctx, u)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, 0, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// backoffDelay computes the next retry delay: honor Retry-After when the
// device sends one, otherwise exponential backoff with jitter.
func backoffDelay(base time.Duration, attempt int, retryAfter string) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			delay := time.Duration(seconds) * time.Second
			if delay > maxDelay {
				return maxDelay
			}
			return delay
		}
	}

	delay := base * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}
	if jitterRange := delay / 4; jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
		delay += jitter
	}
	if delay < 0 {
		delay = base
	}
	return delay
}
