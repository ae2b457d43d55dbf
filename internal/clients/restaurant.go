package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"
)

// RestaurantClient talks to the dedicated restaurant service
type RestaurantClient struct {
	c *Client
}

// NewRestaurantClient creates a restaurant service client
func NewRestaurantClient(baseURL string, httpClient *http.Client) *RestaurantClient {
	return &RestaurantClient{c: New("restaurant-service", baseURL, httpClient)}
}

func (r *RestaurantClient) List(ctx context.Context) ([]*models.Restaurant, error) {
	var out []*models.Restaurant
	if err := r.c.GetJSON(ctx, "/api/restaurant", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RestaurantClient) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	var out models.Restaurant
	if err := r.c.GetJSON(ctx, "/api/restaurant/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RestaurantClient) Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error) {
	var out models.Restaurant
	if err := r.c.PostJSON(ctx, "/api/restaurant", nil, restaurant, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RestaurantClient) Update(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error) {
	var out models.Restaurant
	if err := r.c.PutJSON(ctx, "/api/restaurant/"+url.PathEscape(restaurant.ID), restaurant, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
