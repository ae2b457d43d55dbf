package clients

import (
	"context"
	"net/http"
	"net/url"

	"foodhub-gateway/internal/models"

	"github.com/rs/zerolog/log"
)

// UserClient talks to the user service
type UserClient struct {
	c *Client
}

// NewUserClient creates a user service client
func NewUserClient(baseURL string, httpClient *http.Client) *UserClient {
	return &UserClient{c: New("user-service", baseURL, httpClient)}
}

func (u *UserClient) Get(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := u.c.GetJSON(ctx, "/api/user/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create registers a user record under its identity-provider id
func (u *UserClient) Create(ctx context.Context, user *models.User) (*models.User, error) {
	var out models.User
	if err := u.c.PostJSON(ctx, "/api/user", nil, user, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return user, nil
	}
	return &out, nil
}

// List is best effort: it tries /api/user, then /api/user/all, and returns an empty list when both fail
func (u *UserClient) List(ctx context.Context) []*models.User {
	var out []*models.User
	err := u.c.GetJSON(ctx, "/api/user", nil, &out)
	if err == nil {
		return out
	}
	log.Debug().Err(err).Msg("User list endpoint failed, trying /api/user/all")

	out = nil
	if err := u.c.GetJSON(ctx, "/api/user/all", nil, &out); err != nil {
		log.Warn().Err(err).Msg("No user list endpoint available")
		return []*models.User{}
	}
	return out
}

// Update sends the full user record as a multipart "user" part, with empty photo parts
// so the backend's file parameters are present
func (u *UserClient) Update(ctx context.Context, user *models.User) (*models.User, error) {
	userPart, err := JSONPart("user", user)
	if err != nil {
		return nil, err
	}
	parts := []Part{
		userPart,
		{Field: "userPhoto", Filename: "empty"},
		{Field: "coverPhoto", Filename: "empty"},
	}

	var out models.User
	if err := u.c.Multipart(ctx, http.MethodPut, "/api/user/"+url.PathEscape(user.ID), parts, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return user, nil
	}
	return &out, nil
}
