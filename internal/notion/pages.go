package notion

import (
	"context"
	"fmt"
)

type pageParent struct {
	Type         string `json:"type"`
	DataSourceID string `json:"data_source_id"`
}

type createPageRequest struct {
	Parent     pageParent               `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
}

type updatePageRequest struct {
	Properties map[string]PropertyValue `json:"properties"`
}

// CreatePage creates a page in the data source with the given properties.
func (c *Client) CreatePage(ctx context.Context, dsID string, props map[string]PropertyValue) error {
	body := createPageRequest{
		Parent:     pageParent{Type: "data_source_id", DataSourceID: dsID},
		Properties: props,
	}
	if err := c.do(ctx, "POST", "/pages", body, nil); err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	return nil
}

// UpdatePage applies a partial property update to an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props map[string]PropertyValue) error {
	body := updatePageRequest{Properties: props}
	if err := c.do(ctx, "PATCH", "/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("updating page %s: %w", pageID, err)
	}
	return nil
}
