package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"
)

// ReviewClient talks to the review service (reviews and comments)
type ReviewClient struct {
	c *Client
}

// NewReviewClient creates a review service client
func NewReviewClient(baseURL string, httpClient *http.Client) *ReviewClient {
	return &ReviewClient{c: New("review-service", baseURL, httpClient)}
}

func (r *ReviewClient) List(ctx context.Context) ([]*models.Review, error) {
	var out []*models.Review
	if err := r.c.GetJSON(ctx, "/api/review", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewClient) Get(ctx context.Context, id string) (*models.Review, error) {
	var out models.Review
	if err := r.c.GetJSON(ctx, "/api/review/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReviewClient) ListByUser(ctx context.Context, userID string) ([]*models.Review, error) {
	var out []*models.Review
	if err := r.c.GetJSON(ctx, "/api/review/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewClient) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	var out models.Review
	if err := r.c.PostJSON(ctx, "/api/review", nil, review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update writes the full review record back
func (r *ReviewClient) Update(ctx context.Context, review *models.Review) (*models.Review, error) {
	var out models.Review
	if err := r.c.PutJSON(ctx, "/api/review/"+url.PathEscape(review.ID), review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReviewClient) Delete(ctx context.Context, id string) error {
	return r.c.Delete(ctx, "/api/review/"+url.PathEscape(id))
}

func (r *ReviewClient) ListComments(ctx context.Context) ([]*models.Comment, error) {
	var out []*models.Comment
	if err := r.c.GetJSON(ctx, "/api/comment", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewClient) ListCommentsByReview(ctx context.Context, reviewID string) ([]*models.Comment, error) {
	var out []*models.Comment
	if err := r.c.GetJSON(ctx, "/api/comment/review/"+url.PathEscape(reviewID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewClient) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	var out models.Comment
	if err := r.c.PostJSON(ctx, "/api/comment", nil, comment, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
