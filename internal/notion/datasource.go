package notion

import (
	"context"
	"fmt"

	"github.com/appellisync/appellisync/internal/infer"
)

// ExternalIDProperty is the dedicated column carrying the stable source
// identifier used to deduplicate writes across runs.
const ExternalIDProperty = "External ID"

// TitleProperty is the mandatory page title column.
const TitleProperty = "Name"

// Property is one column of the remote schema.
type Property struct {
	Type string `json:"type"`
}

// DataSource is the remote resource's live schema.
type DataSource struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// TypeDescriptor is the schema-update wire form for one column:
// {"<type>": {}}.
type TypeDescriptor map[string]struct{}

// DescriptorFor builds the descriptor for a property type.
func DescriptorFor(t infer.PropertyType) TypeDescriptor {
	return TypeDescriptor{string(t): {}}
}

// RetrieveDataSource fetches the current schema of a data source.
func (c *Client) RetrieveDataSource(ctx context.Context, dsID string) (*DataSource, error) {
	ds := &DataSource{}
	if err := c.do(ctx, "GET", "/data_sources/"+dsID, nil, ds); err != nil {
		return nil, fmt.Errorf("retrieving data source %s: %w", dsID, err)
	}
	return ds, nil
}

// UpdateDataSourceProperties applies one batched schema change: all
// added and altered columns in a single PATCH.
func (c *Client) UpdateDataSourceProperties(ctx context.Context, dsID string, props map[string]TypeDescriptor) error {
	if len(props) == 0 {
		return nil
	}
	body := map[string]any{"properties": props}
	if err := c.do(ctx, "PATCH", "/data_sources/"+dsID, body, nil); err != nil {
		return fmt.Errorf("updating data source %s schema: %w", dsID, err)
	}
	return nil
}

type queryFilter struct {
	Property string `json:"property"`
	RichText struct {
		Equals string `json:"equals"`
	} `json:"rich_text"`
}

type queryRequest struct {
	PageSize int         `json:"page_size"`
	Filter   queryFilter `json:"filter"`
}

type queryResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// QueryByExternalID returns the id of the first page whose external-id
// property equals the given value, or "" when no page matches.
func (c *Client) QueryByExternalID(ctx context.Context, dsID, property, externalID string) (string, error) {
	req := queryRequest{PageSize: 1}
	req.Filter.Property = property
	req.Filter.RichText.Equals = externalID

	var resp queryResponse
	if err := c.do(ctx, "POST", "/data_sources/"+dsID+"/query", req, &resp); err != nil {
		return "", fmt.Errorf("querying data source %s: %w", dsID, err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}
