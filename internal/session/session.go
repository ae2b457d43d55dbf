package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrSessionExpired is returned once a refresh has failed; the session stays logged out
var ErrSessionExpired = errors.New("session expired")

// Refresher talks to the identity provider
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Identity is the profile the identity provider put in the access token
type Identity struct {
	Name      string
	FirstName string
	LastName  string
	Email     string
}

// Session is the credential state of one caller, passed explicitly with every outbound request
type Session struct {
	UserID   string
	Identity Identity

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiry       time.Time
	refreshed    bool
	loggedOut    bool

	refresher   Refresher
	minValidity time.Duration
}

// New creates a session for an authenticated caller
func New(userID, accessToken, refreshToken string, expiry time.Time, refresher Refresher, minValidity time.Duration) *Session {
	return &Session{
		UserID:       userID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiry:       expiry,
		refresher:    refresher,
		minValidity:  minValidity,
	}
}

// Anonymous returns a session without credentials
func Anonymous() *Session {
	return &Session{}
}

// Authenticated reports whether the session carries a user
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// Token returns a bearer token valid for at least minValidity, refreshing it once if needed.
// Concurrent callers share a single refresh.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedOut {
		return "", ErrSessionExpired
	}
	if s.accessToken == "" {
		return "", nil
	}
	if s.expiry.IsZero() || time.Until(s.expiry) > s.minValidity {
		return s.accessToken, nil
	}

	if s.refresher == nil || s.refreshToken == "" {
		if time.Now().Before(s.expiry) {
			return s.accessToken, nil
		}
		s.logoutLocked(ctx)
		return "", ErrSessionExpired
	}

	tok, err := s.refresher.Refresh(ctx, s.refreshToken)
	if err != nil {
		log.Warn().Err(err).Str("user_id", s.UserID).Msg("Token refresh failed, logging out")
		s.logoutLocked(ctx)
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	s.expiry = tok.Expiry
	s.refreshed = true
	return s.accessToken, nil
}

// Refreshed returns the current tokens when a refresh happened during this session
func (s *Session) Refreshed() (accessToken, refreshToken string, ok bool) {
	if s == nil {
		return "", "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken, s.refreshed && !s.loggedOut
}

// LoggedOut reports whether the session was forcibly logged out
func (s *Session) LoggedOut() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedOut
}

func (s *Session) logoutLocked(ctx context.Context) {
	if s.loggedOut {
		return
	}
	s.loggedOut = true
	if s.refresher == nil || s.refreshToken == "" {
		return
	}
	if err := s.refresher.Logout(ctx, s.refreshToken); err != nil {
		log.Warn().Err(err).Str("user_id", s.UserID).Msg("Identity provider logout failed")
	}
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the attached session, or nil for anonymous calls
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// UserID returns the caller's user id, or an empty string
func UserID(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.UserID
	}
	return ""
}
