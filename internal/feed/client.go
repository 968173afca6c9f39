package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/appellisync/appellisync/internal/httpclient"
)

// Fetcher retrieves the feed document for one course code.
type Fetcher interface {
	Fetch(ctx context.Context, courseCode string) (*Document, error)
}

// Client fetches feed documents over HTTP.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// NewClient builds a feed client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpclient.New(timeout),
		logger:  logger,
	}
}

// Fetch downloads and decodes the document for a course code. The code
// is trimmed and uppercased before building the URL.
func (c *Client) Fetch(ctx context.Context, courseCode string) (*Document, error) {
	code := strings.ToUpper(strings.TrimSpace(courseCode))
	url := fmt.Sprintf("%s/%s", c.baseURL, code)
	c.logger.Info("downloading feed", "course", code, "url", url)

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed for %s: %w", code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed response for %s: %w", code, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed request for %s failed: status %d: %s", code, resp.StatusCode, body)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("feed document for %s: %w", code, err)
	}
	return doc, nil
}
