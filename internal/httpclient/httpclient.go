// Package httpclient provides the retry-aware HTTP client shared by the
// feed and Notion layers: bounded exponential backoff on 429/5xx, honoring
// server Retry-After hints.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// maxRetries gives 6 attempts total.
	maxRetries = 5
	// maxBackoff caps any single wait, Retry-After included.
	maxBackoff = 20 * time.Second
)

// ExhaustedError is returned when a request still gets a retryable status
// after all attempts. It carries the final response body.
type ExhaustedError struct {
	Status   int
	Body     string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: status %d: %s", e.Attempts, e.Status, e.Body)
}

// New builds a retryablehttp client with the sync retry policy and the
// given per-request timeout.
func New(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient = &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   timeout,
	}
	c.RetryMax = maxRetries
	c.RetryWaitMax = maxBackoff
	c.CheckRetry = checkRetry
	c.Backoff = backoff
	c.ErrorHandler = errorHandler
	c.Logger = nil
	return c
}

// checkRetry retries rate limiting (429) and server errors (5xx). Every
// other status, success or not, is returned to the caller immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, nil
}

// backoff waits the server-supplied Retry-After verbatim when present,
// otherwise 2^attempt seconds plus jitter in [0,1), capped at maxBackoff.
func backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil {
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.ParseFloat(s, 64); err == nil {
				return capBackoff(time.Duration(secs * float64(time.Second)))
			}
		}
	}
	wait := math.Pow(2, float64(attemptNum)) + rand.Float64()
	return capBackoff(time.Duration(wait * float64(time.Second)))
}

func capBackoff(d time.Duration) time.Duration {
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// errorHandler surfaces the final retryable response as an ExhaustedError
// instead of retryablehttp's generic "giving up" error.
func errorHandler(resp *http.Response, err error, attempts int) (*http.Response, error) {
	if resp == nil {
		return nil, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	resp.Body.Close()
	return nil, &ExhaustedError{Status: resp.StatusCode, Body: string(body), Attempts: attempts}
}
