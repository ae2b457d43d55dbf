package services_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeTwiceRestoresOriginal(t *testing.T) {
	f := newFixture(t)
	r := f.backend.AddReview(&models.Review{
		Title:             "t",
		UserID:            models.Ptr("author"),
		ReactionUsersLike: []string{"x"},
		ReactionCountLike: 1,
	})

	first, err := f.reviews.ToggleLike(as("me"), r.ID)
	require.NoError(t, err)
	assert.True(t, first.Active)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 2, f.backend.Review(r.ID).ReactionCountLike)

	second, err := f.reviews.ToggleLike(as("me"), r.ID)
	require.NoError(t, err)
	assert.False(t, second.Active)

	stored := f.backend.Review(r.ID)
	assert.Equal(t, []string{"x"}, stored.ReactionUsersLike)
	assert.Equal(t, 1, stored.ReactionCountLike)
}

func TestToggleLikeRollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	r := f.backend.AddReview(&models.Review{Title: "t", UserID: models.Ptr("author")})
	f.backend.Fail(http.MethodPut, "/api/review/"+r.ID, http.StatusInternalServerError, 1)

	var states []services.ToggleState
	f.toggler.OnTransition(func(tg services.Toggle) { states = append(states, tg.State) })

	result, err := f.reviews.ToggleLike(as("me"), r.ID)
	require.Error(t, err)
	assert.False(t, result.Active)
	assert.Equal(t, services.ToggleRolledBack, result.State)
	assert.Equal(t, []services.ToggleState{services.TogglePending, services.ToggleRolledBack}, states)
	assert.Empty(t, f.backend.Review(r.ID).ReactionUsersLike)
}

func TestConcurrentLikesAreNotLost(t *testing.T) {
	f := newFixture(t)
	r := f.backend.AddReview(&models.Review{Title: "t"})

	var wg sync.WaitGroup
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reviews.ToggleLike(as(u), r.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored := f.backend.Review(r.ID)
	assert.Len(t, stored.ReactionUsersLike, 5)
	assert.Equal(t, 5, stored.ReactionCountLike)
}

func TestToggleDislikeIsIndependent(t *testing.T) {
	f := newFixture(t)
	r := f.backend.AddReview(&models.Review{Title: "t", ReactionUsersLike: []string{"me"}})

	result, err := f.reviews.ToggleDislike(as("me"), r.ID)
	require.NoError(t, err)
	assert.True(t, result.Active)

	stored := f.backend.Review(r.ID)
	assert.Equal(t, []string{"me"}, stored.ReactionUsersDislike)
	assert.Equal(t, []string{"me"}, stored.ReactionUsersLike)
}

func TestToggleLikeRequiresSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.reviews.ToggleLike(context.Background(), "r1")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnauthorized))
}

func TestLikeNotifiesAuthor(t *testing.T) {
	f := newFixture(t)
	conn := &fakeConn{}
	f.hub.Register("author", conn)
	r := f.backend.AddReview(&models.Review{Title: "t", UserID: models.Ptr("author")})

	_, err := f.reviews.ToggleLike(as("me"), r.ID)
	require.NoError(t, err)

	events := conn.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, services.EventReviewLiked, events[0].Type)
	assert.Equal(t, "me", events[0].ActorID)
}

func TestCreateUpdateDeleteReview(t *testing.T) {
	f := newFixture(t)

	_, err := f.reviews.Create(as("me"), services.ReviewInput{Title: " "})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = f.reviews.Create(as("me"), services.ReviewInput{Title: "x", FoodID: models.Ptr("f"), RestaurantID: models.Ptr("r")})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	created, err := f.reviews.Create(as("me"), services.ReviewInput{Title: "Great kottu", FoodID: models.Ptr("f1")})
	require.NoError(t, err)
	assert.Equal(t, "me", created.AuthorID())
	assert.Nil(t, created.RestaurantID)

	_, err = f.reviews.Update(as("other"), created.ID, services.ReviewInput{Title: "hijack"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeForbidden))

	updated, err := f.reviews.Update(as("me"), created.ID, services.ReviewInput{Title: "Good kottu"})
	require.NoError(t, err)
	assert.Equal(t, "Good kottu", updated.Title)

	require.NoError(t, f.reviews.Delete(as("me"), created.ID))
	assert.Nil(t, f.backend.Review(created.ID))
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	conn := &fakeConn{}
	f.hub.Register("author", conn)
	r := f.backend.AddReview(&models.Review{Title: "t", UserID: models.Ptr("author")})

	_, err := f.reviews.AddComment(as("me"), r.ID, "  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	c, err := f.reviews.AddComment(as("me"), r.ID, "so good")
	require.NoError(t, err)
	assert.Equal(t, "me", models.Deref(c.UserID))
	assert.Equal(t, services.EventCommentAdded, conn.events(t)[0].Type)

	_, err = f.reviews.AddComment(as("me"), "missing", "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}
