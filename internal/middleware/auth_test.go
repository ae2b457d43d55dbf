package middleware_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodhub-gateway/internal/config"
	"foodhub-gateway/internal/middleware"
	"foodhub-gateway/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

type stubRefresher struct{}

func (stubRefresher) Refresh(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
}

func (stubRefresher) Logout(context.Context, string) error { return nil }

func newAuth(t *testing.T, refresher session.Refresher) *middleware.Authenticator {
	t.Helper()
	a, err := middleware.NewAuthenticator(config.AuthConfig{JWTSecret: secret, Issuer: "foodhub", MinValidity: 30 * time.Second}, refresher)
	require.NoError(t, err)
	return a
}

func serve(h http.Handler, token, refresh string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if refresh != "" {
		req.Header.Set(middleware.RefreshTokenHeader, refresh)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func capture(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = session.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuth(t *testing.T) {
	a := newAuth(t, nil)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantUser   string
	}{
		{"valid token", sign(t, jwt.MapClaims{"sub": "u1", "iss": "foodhub", "exp": time.Now().Add(time.Hour).Unix()}), http.StatusNoContent, "u1"},
		{"legacy user_id claim", sign(t, jwt.MapClaims{"user_id": "u2", "iss": "foodhub"}), http.StatusNoContent, "u2"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong issuer", sign(t, jwt.MapClaims{"sub": "u1", "iss": "other"}), http.StatusUnauthorized, ""},
		{"garbage", "not-a-jwt", http.StatusUnauthorized, ""},
		{"expired without refresh", sign(t, jwt.MapClaims{"sub": "u1", "iss": "foodhub", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			rec := serve(a.RequireAuth(capture(&seen)), tt.token, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

func TestRequireAuthRejectsOtherAlgorithms(t *testing.T) {
	a := newAuth(t, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u1", "iss": "foodhub"}).SignedString([]byte(secret))
	require.NoError(t, err)

	var seen string
	rec := serve(a.RequireAuth(capture(&seen)), token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingRefresher struct{ logouts *int }

func (failingRefresher) Refresh(context.Context, string) (*oauth2.Token, error) {
	return nil, errors.New("invalid_grant")
}

func (f failingRefresher) Logout(context.Context, string) error {
	*f.logouts++
	return nil
}

func TestExpiredTokenIsRefreshedBeforeHandler(t *testing.T) {
	a := newAuth(t, stubRefresher{})
	token := sign(t, jwt.MapClaims{"sub": "u1", "iss": "foodhub", "exp": time.Now().Add(-time.Minute).Unix()})

	var refreshed string
	h := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshed, _, _ = session.FromContext(r.Context()).Refreshed()
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := serve(h, token, "refresh-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "fresh", refreshed)
}

func TestExpiredTokenWithFailingRefreshIsRejected(t *testing.T) {
	logouts := 0
	a := newAuth(t, failingRefresher{logouts: &logouts})
	token := sign(t, jwt.MapClaims{"sub": "u1", "iss": "foodhub", "exp": time.Now().Add(-365 * 24 * time.Hour).Unix()})

	called := false
	h := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := serve(h, token, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Session-Logout"))
	assert.False(t, called)
	assert.Equal(t, 1, logouts)
}

func TestExpiredTokenSignalsLogout(t *testing.T) {
	a := newAuth(t, nil)
	token := sign(t, jwt.MapClaims{"sub": "u1", "iss": "foodhub", "exp": time.Now().Add(-time.Minute).Unix()})

	var seen string
	rec := serve(a.OptionalAuth(capture(&seen)), token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Session-Logout"))
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	a := newAuth(t, nil)
	seen := "unset"
	rec := serve(a.OptionalAuth(capture(&seen)), "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "", seen)
}

func TestRS256PublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	a, err := middleware.NewAuthenticator(config.AuthConfig{PublicKeyPEM: string(pemKey)}, nil)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "kc-user"}).SignedString(key)
	require.NoError(t, err)
	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "kc-user", claims.UserID)

	_, err = a.Verify(sign(t, jwt.MapClaims{"sub": "u1"}))
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)
}

func TestNewAuthenticatorNeedsAKey(t *testing.T) {
	_, err := middleware.NewAuthenticator(config.AuthConfig{}, nil)
	assert.Error(t, err)
}
