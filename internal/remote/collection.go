package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"pazzo-admin/internal/resource"
)

// Collection is the remote endpoint for one resource type. Create and Update
// ignore the response body; callers re-fetch the collection instead.
type Collection struct {
	client *Client
	cfg    resource.Config
	log    *zap.Logger
}

// Config returns the resource this collection serves.
func (c *Collection) Config() resource.Config {
	return c.cfg
}

// List fetches the whole collection in server order.
func (c *Collection) List(ctx context.Context) ([]resource.Record, error) {
	data, err := c.client.do(ctx, http.MethodGet, c.cfg.Path, nil, "")
	if err != nil {
		return nil, err
	}
	records, err := resource.DecodeRecords(data, c.cfg.ImageMode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.cfg.Key, err)
	}
	return records, nil
}

// Create posts a new record.
func (c *Collection) Create(ctx context.Context, p resource.Payload) error {
	_, err := c.client.do(ctx, http.MethodPost, c.cfg.Path, p.Body, p.ContentType)
	return err
}

// Update replaces the record identified by id.
func (c *Collection) Update(ctx context.Context, id string, p resource.Payload) error {
	if id == "" {
		return fmt.Errorf("%s: update requires an identifier", c.cfg.Key)
	}
	_, err := c.client.do(ctx, http.MethodPut, c.cfg.ItemPath(url.PathEscape(id)), p.Body, p.ContentType)
	return err
}

// Delete removes the record identified by id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%s: delete requires an identifier", c.cfg.Key)
	}
	_, err := c.client.do(ctx, http.MethodDelete, c.cfg.ItemPath(url.PathEscape(id)), nil, "")
	return err
}
