package services_test

import (
	"net/http"
	"testing"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCriticScoreWritesOnlyWhenDifferent(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(&models.User{ID: "u1", Followers: []string{"a", "b"}, TotalCriticScore: 0})
	for i := 0; i < 3; i++ {
		f.backend.AddReview(&models.Review{Title: "r", UserID: models.Ptr("u1")})
	}

	score, written, err := f.profiles.SyncCriticScore(as("u1"), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, score)
	assert.True(t, written)
	assert.Equal(t, 5.0, f.backend.User("u1").TotalCriticScore)
	assert.Equal(t, 1, f.backend.Calls(http.MethodPut, "/api/user/u1"))

	score, written, err = f.profiles.SyncCriticScore(as("u1"), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, score)
	assert.False(t, written)
	assert.Equal(t, 1, f.backend.Calls(http.MethodPut, "/api/user/u1"))
}

func TestToggleFollowUpdatesBothUsers(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(user("me", "Me"))
	f.backend.AddUser(user("them", "Them"))
	conn := &fakeConn{}
	f.hub.Register("them", conn)

	result, err := f.profiles.ToggleFollow(as("me"), "them")
	require.NoError(t, err)
	assert.True(t, result.Following)
	assert.Equal(t, 1, result.Followers)
	assert.Equal(t, []string{"them"}, f.backend.User("me").Following)
	assert.Equal(t, []string{"me"}, f.backend.User("them").Followers)
	assert.Equal(t, services.EventFollowed, conn.events(t)[0].Type)

	result, err = f.profiles.ToggleFollow(as("me"), "them")
	require.NoError(t, err)
	assert.False(t, result.Following)
	assert.Empty(t, f.backend.User("me").Following)
	assert.Empty(t, f.backend.User("them").Followers)
}

func TestToggleFollowRevertsHalfAppliedWrite(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(user("me", "Me"))
	f.backend.AddUser(user("them", "Them"))
	f.backend.Fail(http.MethodPut, "/api/user/them", http.StatusInternalServerError, 1)

	result, err := f.profiles.ToggleFollow(as("me"), "them")
	require.Error(t, err)
	assert.False(t, result.Following)
	assert.Equal(t, services.ToggleRolledBack, result.State)
	assert.Empty(t, f.backend.User("me").Following)
	assert.Empty(t, f.backend.User("them").Followers)
}

func TestToggleFollowSelf(t *testing.T) {
	f := newFixture(t)
	_, err := f.profiles.ToggleFollow(as("me"), "me")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestUpdateProfileMergesAndInvalidatesMemo(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(&models.User{ID: "u1", Name: models.Ptr("Old"), Location: models.Ptr("Kandy")})
	f.backend.AddReview(&models.Review{Title: "t", UserID: models.Ptr("u1")})

	posts, err := f.feed.Feed(as("u1"), services.FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Old", posts[0].Author.Name)

	updated, err := f.profiles.UpdateProfile(as("u1"), "u1", services.ProfileUpdate{Name: models.Ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.DisplayName())
	assert.Equal(t, "Kandy", models.Deref(f.backend.User("u1").Location))

	posts, err = f.feed.Feed(as("u1"), services.FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, "New", posts[0].Author.Name)

	_, err = f.profiles.UpdateProfile(as("u1"), "u1", services.ProfileUpdate{Name: models.Ptr(" ")})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestProfileAggregatesForSelf(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(&models.User{ID: "u1", Name: models.Ptr("Amaya"), Coins: 4, Followers: []string{"x"}, Following: []string{"y", "z"}})
	f.backend.AddUser(user("u2", "Bimal"))
	f.backend.AddReview(&models.Review{Title: "t", UserID: models.Ptr("u1")})
	f.backend.AddHangout(&models.Hangout{ID: "h1", UserID1: models.Ptr("u2"), UserID2: models.Ptr("u1")})

	profile, err := f.profiles.Profile(as("u1"), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), profile.Coins)
	assert.Equal(t, 1, profile.FollowerCount)
	assert.Equal(t, 2, profile.FollowingCount)
	assert.Len(t, profile.Reviews, 1)
	require.Len(t, profile.Hangouts, 1)
	assert.Equal(t, "Bimal", profile.Hangouts[0].Counterpart.Name)

	other, err := f.profiles.Profile(as("u2"), "u1")
	require.NoError(t, err)
	assert.Empty(t, other.Hangouts)
}
