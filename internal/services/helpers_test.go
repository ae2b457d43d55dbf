package services_test

import (
	"context"
	"testing"
	"time"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/repository"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/internal/testutil"
	"foodhub-gateway/pkg/retry"
)

type fixture struct {
	backend *testutil.Backend
	hub     *services.NotificationHub
	toggler *services.Toggler
	memo    *loaders.UserMemo
	factory *loaders.Factory
	store   *repository.MemoryLedger

	reviewClient *clients.ReviewClient
	userClient   *clients.UserClient

	feed        *services.FeedService
	reviews     *services.ReviewService
	ledger      *services.LedgerService
	paid        *services.PaidOperations
	hangouts    *services.HangoutService
	profiles    *services.ProfileService
	restaurants *services.RestaurantService
	visits      *services.VisitService
	foods       *services.FoodService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testutil.NewBackend(t)
	url := backend.URL()

	reviewClient := clients.NewReviewClient(url, nil)
	userClient := clients.NewUserClient(url, nil)
	foodClient := clients.NewFoodClient(url, nil)
	restaurantClient := clients.NewRestaurantClient(url, nil)

	memo := loaders.NewUserMemo(100, time.Minute, nil)
	factory := loaders.NewFactory(userClient, foodClient, restaurantClient, memo, 4, nil)
	hub := services.NewNotificationHub()
	toggler := services.NewToggler(nil)
	store := repository.NewMemoryLedger()

	ledger := services.NewLedgerService(store, userClient, 20, time.Minute, nil)
	ledger.SetRetry(retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1})

	feed := services.NewFeedService(reviewClient, factory)
	hangouts := services.NewHangoutService(clients.NewHangoutClient(url, nil), feed, hub)

	return &fixture{
		backend:      backend,
		hub:          hub,
		toggler:      toggler,
		memo:         memo,
		factory:      factory,
		store:        store,
		reviewClient: reviewClient,
		userClient:   userClient,
		feed:         feed,
		reviews:      services.NewReviewService(reviewClient, toggler, hub),
		ledger:       ledger,
		paid: services.NewPaidOperations(ledger,
			clients.NewRecommendationClient(url, nil),
			clients.NewNutritionClient(url, nil),
			foodClient,
			factory,
			services.Costs{Recommendation: 1, Nutrition: 2},
		),
		hangouts:    hangouts,
		profiles:    services.NewProfileService(userClient, reviewClient, feed, hangouts, ledger, memo, toggler, hub),
		restaurants: services.NewRestaurantService(restaurantClient, foodClient, factory, 4),
		visits:      services.NewVisitService(clients.NewVisitClient(url, nil), userClient, toggler),
		foods:       services.NewFoodService(foodClient),
	}
}

func as(userID string) context.Context {
	s := session.New(userID, "token-"+userID, "", time.Now().Add(time.Hour), nil, 30*time.Second)
	return session.WithSession(context.Background(), s)
}

func user(id, name string) *models.User {
	return &models.User{ID: id, Name: models.Ptr(name)}
}
