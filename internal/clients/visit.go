package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"
)

// VisitClient talks to the legacy visit service
type VisitClient struct {
	c *Client
}

// NewVisitClient creates a visit service client
func NewVisitClient(baseURL string, httpClient *http.Client) *VisitClient {
	return &VisitClient{c: New("visit-service", baseURL, httpClient)}
}

func (v *VisitClient) List(ctx context.Context) ([]*models.Visit, error) {
	var out []*models.Visit
	if err := v.c.GetJSON(ctx, "/api/visit", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *VisitClient) Get(ctx context.Context, id string) (*models.Visit, error) {
	var out models.Visit
	if err := v.c.GetJSON(ctx, "/api/visit/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *VisitClient) Create(ctx context.Context, visit *models.Visit) (*models.Visit, error) {
	var out models.Visit
	if err := v.c.PostJSON(ctx, "/api/visit", nil, visit, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *VisitClient) Update(ctx context.Context, visit *models.Visit) (*models.Visit, error) {
	var out models.Visit
	if err := v.c.PutJSON(ctx, "/api/visit/"+url.PathEscape(visit.ID), visit, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *VisitClient) Delete(ctx context.Context, id string) error {
	return v.c.Delete(ctx, "/api/visit/"+url.PathEscape(id))
}
