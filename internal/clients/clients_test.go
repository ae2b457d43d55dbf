package clients_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/internal/testutil"
	"foodhub-gateway/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authed(userID string) context.Context {
	s := session.New(userID, "access-"+userID, "", time.Now().Add(time.Hour), nil, 30*time.Second)
	return session.WithSession(context.Background(), s)
}

func TestClientAttachesBearerToken(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddReview(&models.Review{ID: "r1", Title: "Great"})

	reviews := clients.NewReviewClient(backend.URL(), nil)
	review, err := reviews.Get(authed("u1"), "r1")
	require.NoError(t, err)

	assert.Equal(t, "Great", review.Title)
	assert.Equal(t, "Bearer access-u1", backend.LastAuthorization())
}

func TestClientAnonymousSendsNoToken(t *testing.T) {
	backend := testutil.NewBackend(t)

	_, err := clients.NewReviewClient(backend.URL(), nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backend.LastAuthorization())
}

func TestClientStatusErrorMapping(t *testing.T) {
	backend := testutil.NewBackend(t)
	reviews := clients.NewReviewClient(backend.URL(), nil)

	_, err := reviews.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, clients.IsNotFound(err))
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(clients.Wrap(err, "review not found")))

	backend.Fail(http.MethodGet, "/api/review", http.StatusInternalServerError, 1)
	_, err = reviews.List(context.Background())
	require.Error(t, err)
	var statusErr *clients.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "review-service", statusErr.Service)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(clients.Wrap(err, "failed")))
}

func TestClientExpiredSessionAbortsRequest(t *testing.T) {
	backend := testutil.NewBackend(t)
	s := session.New("u1", "old", "", time.Now().Add(-time.Minute), nil, 30*time.Second)
	ctx := session.WithSession(context.Background(), s)

	_, err := clients.NewReviewClient(backend.URL(), nil).List(ctx)
	require.ErrorIs(t, err, session.ErrSessionExpired)
	assert.Equal(t, 0, backend.TotalCalls())
	assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(clients.Wrap(err, "x")))
}

func TestUserListFallsBackToAll(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddUser(&models.User{ID: "u1"})
	users := clients.NewUserClient(backend.URL(), nil)

	backend.Fail(http.MethodGet, "/api/user", http.StatusNotFound, 1)
	list := users.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, 1, backend.Calls(http.MethodGet, "/api/user/all"))

	backend.Fail(http.MethodGet, "/api/user", http.StatusNotFound, -1)
	backend.Fail(http.MethodGet, "/api/user/all", http.StatusInternalServerError, -1)
	assert.Empty(t, users.List(context.Background()))
}

func TestUserUpdateIsMultipart(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddUser(&models.User{ID: "u1", Name: models.Ptr("Old")})
	users := clients.NewUserClient(backend.URL(), nil)

	updated, err := users.Update(context.Background(), &models.User{ID: "u1", Name: models.Ptr("New"), Followers: []string{"u2"}})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.DisplayName())
	assert.Equal(t, []string{"u2"}, backend.User("u1").Followers)
}

func TestFoodCreateWithImage(t *testing.T) {
	backend := testutil.NewBackend(t)
	foods := clients.NewFoodClient(backend.URL(), nil)

	food, err := foods.Create(context.Background(), &models.Food{Name: "Hoppers"}, &clients.Image{
		Filename:    "hoppers.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	require.NotEmpty(t, food.ID)
	assert.Equal(t, "Hoppers", food.Name)
	assert.Equal(t, "https://images.example/hoppers.jpg", models.Deref(food.ImageURL))

	plain, err := foods.Create(context.Background(), &models.Food{Name: "Kottu"}, nil)
	require.NoError(t, err)
	assert.Nil(t, plain.ImageURL)
}

func TestFilenameQuotesAreEscaped(t *testing.T) {
	backend := testutil.NewBackend(t)
	foods := clients.NewFoodClient(backend.URL(), nil)

	food, err := foods.Create(context.Background(), &models.Food{Name: "Hoppers"}, &clients.Image{
		Filename:    `say "hoppers".jpg`,
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	assert.Equal(t, `https://images.example/say "hoppers".jpg`, models.Deref(food.ImageURL))
}

func TestUserCreateKeepsID(t *testing.T) {
	backend := testutil.NewBackend(t)
	users := clients.NewUserClient(backend.URL(), nil)

	created, err := users.Create(context.Background(), &models.User{ID: "kc-sub-1", Coins: 20})
	require.NoError(t, err)
	assert.Equal(t, "kc-sub-1", created.ID)
	require.NotNil(t, backend.User("kc-sub-1"))
	assert.Equal(t, float64(20), backend.User("kc-sub-1").Coins)
}

func TestRecommendationSendsQueryParams(t *testing.T) {
	backend := testutil.NewBackend(t)
	agent := clients.NewRecommendationClient(backend.URL(), nil)

	rec, err := agent.Recommend(context.Background(), models.RecommendationQuery{Query: "spicy noodles", MaxPrice: models.Ptr(12.5)})
	require.NoError(t, err)
	assert.Equal(t, "spicy noodles", rec.Query)
	assert.NotEmpty(t, rec.RecommendedFoods)
}

func TestRecommendationKeepsDatabaseIDs(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Recommendation = &models.Recommendation{
		RecommendedRestaurants: []models.RecommendedPlace{{Name: "Pilawoos", DBID: "188as11"}},
		RecommendedFoods:       []models.RecommendedFood{{Name: "Kacchi", DBID: "bd-kacchi-0001"}},
	}
	agent := clients.NewRecommendationClient(backend.URL(), nil)

	rec, err := agent.Recommend(context.Background(), models.RecommendationQuery{Query: "biryani"})
	require.NoError(t, err)
	assert.Equal(t, "188as11", rec.RecommendedRestaurants[0].DBID)
	assert.Equal(t, "bd-kacchi-0001", rec.RecommendedFoods[0].DBID)
}

func TestNutritionAnalyze(t *testing.T) {
	backend := testutil.NewBackend(t)
	agent := clients.NewNutritionClient(backend.URL(), nil)

	n, err := agent.Analyze(context.Background(), "https://images.example/rice.jpg")
	require.NoError(t, err)
	assert.Equal(t, "550", n.TotalCalories)
}

func TestCommentCreateAppendsToReview(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddReview(&models.Review{ID: "r1"})
	reviews := clients.NewReviewClient(backend.URL(), nil)

	c, err := reviews.CreateComment(context.Background(), &models.Comment{ReviewID: "r1", Content: "agreed"})
	require.NoError(t, err)

	comments, err := reviews.ListCommentsByReview(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, c.ID, comments[0].ID)
	assert.Equal(t, []string{c.ID}, backend.Review("r1").Comments)
}
