package repository_test

import (
	"context"
	"testing"
	"time"

	"foodhub-gateway/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraftRepo(t *testing.T, ttl time.Duration) (*repository.DraftRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewDraftRepository(rdb, ttl), mr
}

func TestDraftConsumeOnce(t *testing.T) {
	repo, mr := newDraftRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "pendingReviewDraft", []byte(`{"title":"t"}`)))
	assert.True(t, mr.Exists("draft:u1:pendingReviewDraft"))

	data, err := repo.Consume(ctx, "u1", "pendingReviewDraft")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t"}`, string(data))

	_, err = repo.Consume(ctx, "u1", "pendingReviewDraft")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestDraftOwnersAreIsolated(t *testing.T) {
	repo, _ := newDraftRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "k", []byte(`1`)))
	require.NoError(t, repo.Save(ctx, "u1/tab-2", "k", []byte(`2`)))

	a, err := repo.Peek(ctx, "u1", "k")
	require.NoError(t, err)
	b, err := repo.Peek(ctx, "u1/tab-2", "k")
	require.NoError(t, err)
	assert.Equal(t, "1", string(a))
	assert.Equal(t, "2", string(b))

	_, err = repo.Peek(ctx, "u2", "k")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestDraftExpires(t *testing.T) {
	repo, mr := newDraftRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "k", []byte(`{}`)))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Peek(ctx, "u1", "k")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestDraftDiscard(t *testing.T) {
	repo, _ := newDraftRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "k", []byte(`{}`)))
	require.NoError(t, repo.Discard(ctx, "u1", "k"))
	require.NoError(t, repo.Discard(ctx, "u1", "k"))

	_, err := repo.Consume(ctx, "u1", "k")
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}
