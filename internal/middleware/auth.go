package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodhub-gateway/internal/config"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// RefreshTokenHeader carries the caller's refresh token next to the bearer token
const RefreshTokenHeader = "X-Refresh-Token"

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is what the gateway reads from a verified bearer token
type Claims struct {
	UserID   string
	Expiry   time.Time
	Identity session.Identity
}

// Authenticator verifies bearer tokens and attaches a session to each request
type Authenticator struct {
	keyFunc     jwt.Keyfunc
	methods     []string
	issuer      string
	refresher   session.Refresher
	minValidity time.Duration
}

// NewAuthenticator builds an authenticator for HS256 (secret) or RS256 (public key) tokens
func NewAuthenticator(cfg config.AuthConfig, refresher session.Refresher) (*Authenticator, error) {
	a := &Authenticator{
		issuer:      cfg.Issuer,
		refresher:   refresher,
		minValidity: cfg.MinValidity,
	}

	switch {
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse auth public key: %w", err)
		}
		a.methods = []string{jwt.SigningMethodRS256.Alg()}
		a.keyFunc = func(*jwt.Token) (interface{}, error) { return key, nil }
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		a.methods = []string{jwt.SigningMethodHS256.Alg()}
		a.keyFunc = func(*jwt.Token) (interface{}, error) { return secret, nil }
	default:
		return nil, errors.New("auth requires jwt_secret or public_key_pem")
	}
	return a, nil
}

// Verify checks the signature and issuer of token. Expiry is reported, not enforced,
// so that an expired token can still be refreshed.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(a.methods), jwt.WithoutClaimsValidation())
	parsed, err := parser.Parse(token, a.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		if mc, ok := parsed.Claims.(jwt.MapClaims); ok {
			sub, _ = mc["user_id"].(string)
		}
	}
	if sub == "" {
		return nil, fmt.Errorf("%w: subject not found in token", ErrInvalidToken)
	}
	if a.issuer != "" {
		iss, _ := parsed.Claims.GetIssuer()
		if iss != a.issuer {
			return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, iss)
		}
	}

	claims := &Claims{UserID: sub}
	if mc, ok := parsed.Claims.(jwt.MapClaims); ok {
		claims.Identity = session.Identity{
			Name:      stringClaim(mc, "name"),
			FirstName: stringClaim(mc, "given_name"),
			LastName:  stringClaim(mc, "family_name"),
			Email:     stringClaim(mc, "email"),
		}
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}

// Session builds the caller's session from the request headers.
// It returns (nil, nil) when the request carries no bearer token.
func (a *Authenticator) Session(r *http.Request) (*session.Session, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
	}
	return a.sessionFor(parts[1], r.Header.Get(RefreshTokenHeader))
}

// WebSocketSession builds a session from a query-string token
func (a *Authenticator) WebSocketSession(token string) (*session.Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return a.sessionFor(token, "")
}

func (a *Authenticator) sessionFor(token, refreshToken string) (*session.Session, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	if !claims.Expiry.IsZero() && time.Now().After(claims.Expiry) && (refreshToken == "" || a.refresher == nil) {
		return nil, ErrTokenExpired
	}
	s := session.New(claims.UserID, token, refreshToken, claims.Expiry, a.refresher, a.minValidity)
	s.Identity = claims.Identity
	return s, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return v
}

// OptionalAuth attaches a session when a valid bearer token is present; anonymous requests pass through
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.Session(r)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			respondUnauthorized(w, err)
			return
		}
		if s == nil {
			next.ServeHTTP(w, r)
			return
		}
		// gateway-local routes never call a backend, so an expiring token is refreshed here
		if _, err := s.Token(r.Context()); err != nil {
			log.Debug().Err(err).Str("user_id", s.UserID).Msg("Session refresh failed")
			respondUnauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

// RequireAuth rejects requests without an authenticated session
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return a.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated() {
			respondUnauthorized(w, ErrMissingToken)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// Loaders attaches a fresh set of per-request loaders
func Loaders(factory *loaders.Factory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), factory.New())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, err error) {
	message := "Invalid token"
	switch {
	case errors.Is(err, ErrMissingToken):
		message = "Authorization header required"
	case errors.Is(err, ErrTokenExpired), errors.Is(err, session.ErrSessionExpired):
		message = "Token expired"
		w.Header().Set("X-Session-Logout", "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
