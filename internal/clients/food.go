package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"
)

// FoodClient talks to the food service
type FoodClient struct {
	c *Client
}

// NewFoodClient creates a food service client
func NewFoodClient(baseURL string, httpClient *http.Client) *FoodClient {
	return &FoodClient{c: New("food-service", baseURL, httpClient)}
}

// Image is an optional file attached to a food
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (f *FoodClient) List(ctx context.Context) ([]*models.Food, error) {
	var out []*models.Food
	if err := f.c.GetJSON(ctx, "/api/food", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FoodClient) Get(ctx context.Context, id string) (*models.Food, error) {
	var out models.Food
	if err := f.c.GetJSON(ctx, "/api/food/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create sends the food as a JSON "food" part plus an optional "image" part
func (f *FoodClient) Create(ctx context.Context, food *models.Food, image *Image) (*models.Food, error) {
	parts, err := foodParts(food, image)
	if err != nil {
		return nil, err
	}
	var out models.Food
	if err := f.c.Multipart(ctx, http.MethodPost, "/api/food", parts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *FoodClient) Update(ctx context.Context, food *models.Food, image *Image) (*models.Food, error) {
	parts, err := foodParts(food, image)
	if err != nil {
		return nil, err
	}
	var out models.Food
	if err := f.c.Multipart(ctx, http.MethodPut, "/api/food/"+url.PathEscape(food.ID), parts, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return food, nil
	}
	return &out, nil
}

func (f *FoodClient) Delete(ctx context.Context, id string) error {
	return f.c.Delete(ctx, "/api/food/"+url.PathEscape(id))
}

func foodParts(food *models.Food, image *Image) ([]Part, error) {
	foodPart, err := JSONPart("food", food)
	if err != nil {
		return nil, err
	}
	parts := []Part{foodPart}
	if image != nil && len(image.Data) > 0 {
		parts = append(parts, Part{
			Field:       "image",
			Filename:    image.Filename,
			ContentType: image.ContentType,
			Data:        image.Data,
		})
	}
	return parts, nil
}
