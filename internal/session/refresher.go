package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// OAuthRefresher refreshes tokens with the refresh-token grant and ends sessions at the provider
type OAuthRefresher struct {
	cfg        *oauth2.Config
	logoutURL  string
	httpClient *http.Client
}

// NewOAuthRefresher creates a refresher against the identity provider's token and logout endpoints
func NewOAuthRefresher(tokenURL, logoutURL, clientID, clientSecret string, httpClient *http.Client) *OAuthRefresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuthRefresher{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logoutURL:  logoutURL,
		httpClient: httpClient,
	}
}

// Refresh exchanges a refresh token for a new token pair
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tok, nil
}

// Logout ends the provider session bound to refreshToken
func (r *OAuthRefresher) Logout(ctx context.Context, refreshToken string) error {
	if r.logoutURL == "" {
		return nil
	}
	form := url.Values{
		"client_id":     {r.cfg.ClientID},
		"refresh_token": {refreshToken},
	}
	if r.cfg.ClientSecret != "" {
		form.Set("client_secret", r.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.logoutURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call logout endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("logout endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
