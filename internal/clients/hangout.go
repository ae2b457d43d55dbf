package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"
)

// HangoutClient talks to the hangout service
type HangoutClient struct {
	c *Client
}

// NewHangoutClient creates a hangout service client
func NewHangoutClient(baseURL string, httpClient *http.Client) *HangoutClient {
	return &HangoutClient{c: New("hangout-service", baseURL, httpClient)}
}

func (h *HangoutClient) List(ctx context.Context) ([]*models.Hangout, error) {
	var out []*models.Hangout
	if err := h.c.GetJSON(ctx, "/api/hangout", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HangoutClient) Get(ctx context.Context, id string) (*models.Hangout, error) {
	var out models.Hangout
	if err := h.c.GetJSON(ctx, "/api/hangout/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HangoutClient) Create(ctx context.Context, hangout *models.Hangout) (*models.Hangout, error) {
	var out models.Hangout
	if err := h.c.PostJSON(ctx, "/api/hangout", nil, hangout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HangoutClient) Update(ctx context.Context, hangout *models.Hangout) (*models.Hangout, error) {
	var out models.Hangout
	if err := h.c.PutJSON(ctx, "/api/hangout/"+url.PathEscape(hangout.ID), hangout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
