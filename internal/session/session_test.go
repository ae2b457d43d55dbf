package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"foodhub-gateway/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeRefresher struct {
	refreshes atomic.Int32
	logouts   atomic.Int32
	err       error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.refreshes.Add(1)
	time.Sleep(5 * time.Millisecond)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "fresh", RefreshToken: "r2", Expiry: time.Now().Add(5 * time.Minute)}, nil
}

func (f *fakeRefresher) Logout(ctx context.Context, refreshToken string) error {
	f.logouts.Add(1)
	return nil
}

func TestToken_ValidTokenIsReturnedAsIs(t *testing.T) {
	r := &fakeRefresher{}
	s := session.New("u1", "access", "refresh", time.Now().Add(time.Hour), r, 30*time.Second)

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access", tok)
	assert.Zero(t, r.refreshes.Load())
}

func TestToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	r := &fakeRefresher{}
	s := session.New("u1", "old", "refresh", time.Now().Add(10*time.Second), r, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := s.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "fresh", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.refreshes.Load())
	access, refresh, ok := s.Refreshed()
	assert.True(t, ok)
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "r2", refresh)
}

func TestToken_RefreshFailureLogsOut(t *testing.T) {
	r := &fakeRefresher{err: errors.New("invalid_grant")}
	s := session.New("u1", "old", "refresh", time.Now().Add(time.Second), r, 30*time.Second)

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.True(t, s.LoggedOut())

	_, err = s.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.Equal(t, int32(1), r.refreshes.Load())
	assert.Equal(t, int32(1), r.logouts.Load())
}

func TestToken_AnonymousSession(t *testing.T) {
	var s *session.Session
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.False(t, session.Anonymous().Authenticated())
}

func TestContextHelpers(t *testing.T) {
	ctx := session.WithSession(context.Background(), session.New("u9", "a", "", time.Time{}, nil, 0))
	assert.Equal(t, "u9", session.UserID(ctx))
	assert.Empty(t, session.UserID(context.Background()))
}

func TestOAuthRefresher_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "foodhub", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","token_type":"bearer","expires_in":300,"refresh_token":"r2"}`))
	}))
	defer srv.Close()

	refresher := session.NewOAuthRefresher(srv.URL, "", "foodhub", "", srv.Client())
	tok, err := refresher.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, "r2", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), tok.Expiry, 10*time.Second)
}

func TestOAuthRefresher_Logout(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))
		called.Store(true)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	refresher := session.NewOAuthRefresher(srv.URL+"/token", srv.URL+"/logout", "foodhub", "s3cret", srv.Client())
	require.NoError(t, refresher.Logout(context.Background(), "r1"))
	assert.True(t, called.Load())
}
