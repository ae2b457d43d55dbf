package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"foodhub-gateway/internal/models"
)

// RecommendationClient talks to the recommendation agent
type RecommendationClient struct {
	c *Client
}

// NewRecommendationClient creates a recommendation agent client
func NewRecommendationClient(baseURL string, httpClient *http.Client) *RecommendationClient {
	return &RecommendationClient{c: New("recommendation-agent", baseURL, httpClient)}
}

// Recommend posts the query as query parameters, which is what the agent expects
func (r *RecommendationClient) Recommend(ctx context.Context, q models.RecommendationQuery) (*models.Recommendation, error) {
	params := url.Values{}
	params.Set("query_text", q.Query)
	if q.Place != "" {
		params.Set("place", q.Place)
	}
	if q.Types != "" {
		params.Set("types", q.Types)
	}
	if q.MaxPrice != nil {
		params.Set("max_price", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Restaurant != "" {
		params.Set("restaurant", q.Restaurant)
	}
	if q.TopK > 0 {
		params.Set("top_k", strconv.Itoa(q.TopK))
	}

	var out models.Recommendation
	if err := r.c.PostJSON(ctx, "/get-recommendation", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NutritionClient talks to the nutrition agent
type NutritionClient struct {
	c *Client
}

// NewNutritionClient creates a nutrition agent client
func NewNutritionClient(baseURL string, httpClient *http.Client) *NutritionClient {
	return &NutritionClient{c: New("nutrition-agent", baseURL, httpClient)}
}

// Analyze returns the nutrition breakdown of the dish at imageURL
func (n *NutritionClient) Analyze(ctx context.Context, imageURL string) (*models.Nutrition, error) {
	var out models.Nutrition
	body := map[string]string{"image_url": imageURL}
	if err := n.c.PostJSON(ctx, "/analyze-nutrition-url", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
