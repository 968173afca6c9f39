// Package notion talks to the Notion data-source and pages APIs: schema
// retrieval and reconciliation, external-id lookup, page create/update,
// and the typed property-value envelopes those calls carry.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/appellisync/appellisync/internal/httpclient"
)

const apiVersion = "2025-09-03"

// requestTimeout is the fixed per-request deadline.
const requestTimeout = 60 * time.Second

// API is the surface of the remote store the sync engine needs. Client
// implements it against the live service.
type API interface {
	RetrieveDataSource(ctx context.Context, dsID string) (*DataSource, error)
	UpdateDataSourceProperties(ctx context.Context, dsID string, props map[string]TypeDescriptor) error
	QueryByExternalID(ctx context.Context, dsID, property, externalID string) (string, error)
	CreatePage(ctx context.Context, dsID string, props map[string]PropertyValue) error
	UpdatePage(ctx context.Context, pageID string, props map[string]PropertyValue) error
}

// APIError is a non-success response after any retries, carrying the
// raw response body.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error: status %d: %s", e.Status, e.Body)
}

// Client is the retry-aware Notion API client.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	token   string
}

// NewClient builds a client for the given base URL and auth token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		http:    httpclient.New(requestTimeout),
		baseURL: baseURL,
		token:   token,
	}
}

// do sends one API request and decodes the response into out when
// non-nil. A final status >= 300 becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
