package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"foodhub-gateway/internal/repository"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraftService(t *testing.T) *services.DraftService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return services.NewDraftService(repository.NewDraftRepository(rdb, time.Hour))
}

func TestDraftRoundTripIsConsumedOnce(t *testing.T) {
	drafts := newDraftService(t)
	ctx := context.Background()

	type pendingReview struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Rating      int      `json:"rating"`
		Tags        []string `json:"tags"`
	}
	in := pendingReview{Title: "Crab curry", Description: "rich", Rating: 5, Tags: []string{"spicy"}}
	require.NoError(t, drafts.Store(ctx, "u1", services.DraftPendingReview, in))

	raw, err := drafts.Consume(ctx, "u1", services.DraftPendingReview)
	require.NoError(t, err)
	var out pendingReview
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	_, err = drafts.Consume(ctx, "u1", services.DraftPendingReview)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestDraftRejectsUnknownKeyAndInvalidJSON(t *testing.T) {
	drafts := newDraftService(t)
	ctx := context.Background()

	err := drafts.Save(ctx, "u1", "somethingElse", json.RawMessage(`{}`))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	err = drafts.Save(ctx, "u1", services.DraftCreatedFood, json.RawMessage(`{not json`))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestDraftPeekAndDiscard(t *testing.T) {
	drafts := newDraftService(t)
	ctx := context.Background()

	require.NoError(t, drafts.Save(ctx, "u1", services.DraftCreatedRestaurant, json.RawMessage(`{"id":"r1"}`)))
	raw, err := drafts.Peek(ctx, "u1", services.DraftCreatedRestaurant)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1"}`, string(raw))

	require.NoError(t, drafts.Discard(ctx, "u1", services.DraftCreatedRestaurant))
	_, err = drafts.Peek(ctx, "u1", services.DraftCreatedRestaurant)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestDraftOwner(t *testing.T) {
	owner, err := services.Owner("u1", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	owner, err = services.Owner("u1", "tab-2")
	require.NoError(t, err)
	assert.Equal(t, "u1/tab-2", owner)

	_, err = services.Owner("u1", "../other")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = services.Owner("", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnauthorized))
}
