package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// Router wires every handler onto the gateway's routes
type Router struct {
	Auth           *middleware.Authenticator
	Loaders        *loaders.Factory
	AllowedOrigins string
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck

	Reviews     *ReviewHandler
	Users       *UserHandler
	Restaurants *RestaurantHandler
	Visits      *VisitHandler
	Foods       *FoodHandler
	Hangouts    *HangoutHandler
	Coins       *CoinHandler
	Drafts      *DraftHandler
	Uploads     *UploadHandler
	WebSocket   *WebSocketHandler
}

// Handler builds the chi router
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware(rt.AllowedOrigins))

	r.Get("/healthz", rt.health)
	r.Get("/ws", rt.WebSocket.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		if rt.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(rt.RequestTimeout))
		}
		r.Use(middleware.Loaders(rt.Loaders))

		// Public routes; a bearer token is honoured when present
		r.Group(func(r chi.Router) {
			r.Use(rt.Auth.OptionalAuth)
			r.Get("/feed", rt.Reviews.Feed)
			r.Get("/reviews/{id}", rt.Reviews.GetReview)
			r.Get("/users", rt.Users.ListUsers)
			r.Get("/users/{id}", rt.Users.GetProfile)
			r.Get("/restaurants", rt.Restaurants.ListRestaurants)
			r.Get("/restaurants/{id}", rt.Restaurants.GetRestaurant)
			r.Get("/foods", rt.Foods.ListFoods)
			r.Get("/foods/{id}", rt.Foods.GetFood)
			r.Get("/visits", rt.Visits.ListVisits)
			r.Get("/visits/restaurants", rt.Visits.VisitRestaurants)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.Auth.RequireAuth)
			r.Post("/reviews", rt.Reviews.CreateReview)
			r.Put("/reviews/{id}", rt.Reviews.UpdateReview)
			r.Delete("/reviews/{id}", rt.Reviews.DeleteReview)
			r.Post("/reviews/{id}/like", rt.Reviews.Like)
			r.Post("/reviews/{id}/dislike", rt.Reviews.Dislike)
			r.Post("/reviews/{id}/comments", rt.Reviews.AddComment)

			r.Put("/users/me", rt.Users.UpdateMe)
			r.Post("/users/{id}/follow", rt.Users.Follow)
			r.Post("/users/{id}/critic-score", rt.Users.SyncCriticScore)

			r.Post("/restaurants", rt.Restaurants.CreateRestaurant)
			r.Put("/restaurants/{id}", rt.Restaurants.UpdateRestaurant)

			r.Post("/foods", rt.Foods.CreateFood)
			r.Put("/foods/{id}", rt.Foods.UpdateFood)
			r.Delete("/foods/{id}", rt.Foods.DeleteFood)
			r.Post("/foods/{id}/nutrition", rt.Foods.GenerateNutrition)

			r.Post("/visits", rt.Visits.CreateVisit)
			r.Delete("/visits/{id}", rt.Visits.DeleteVisit)

			r.Get("/hangouts", rt.Hangouts.ListHangouts)
			r.Post("/hangouts", rt.Hangouts.CreateHangout)
			r.Post("/hangouts/{id}/respond", rt.Hangouts.RespondHangout)

			r.Get("/coins", rt.Coins.Balance)
			r.Post("/ai/recommendations", rt.Coins.Recommend)

			r.Put("/drafts/{key}", rt.Drafts.SaveDraft)
			r.Get("/drafts/{key}", rt.Drafts.GetDraft)
			r.Delete("/drafts/{key}", rt.Drafts.DiscardDraft)

			r.Post("/uploads", rt.Uploads.Presign)
		})
	})

	return r
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := make(map[string]string)
	for name, check := range rt.HealthChecks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "degraded",
			"failing": failing,
		})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware handles CORS
func corsMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowedOrigins == "" || allowedOrigins == "*":
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && originAllowed(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
				"Authorization", "Content-Type", middleware.RefreshTokenHeader, HeaderFlowID,
			}, ", "))
			w.Header().Set("Access-Control-Expose-Headers", strings.Join([]string{
				HeaderAccessToken, HeaderRefreshToken, HeaderSessionLogout,
			}, ", "))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
