package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftRepository keeps short-lived form drafts in Redis under draft:<owner>:<key>
type DraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(rdb *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{rdb: rdb, ttl: ttl}
}

func draftKey(owner, key string) string {
	return "draft:" + owner + ":" + key
}

// Save stores payload, replacing any previous draft under the same key
func (r *DraftRepository) Save(ctx context.Context, owner, key string, payload []byte) error {
	if err := r.rdb.Set(ctx, draftKey(owner, key), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Peek returns the draft without removing it
func (r *DraftRepository) Peek(ctx context.Context, owner, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, draftKey(owner, key)).Bytes()
	if err == redis.Nil {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return data, nil
}

// Consume returns the draft and deletes it atomically, so only one reader ever sees it
func (r *DraftRepository) Consume(ctx context.Context, owner, key string) ([]byte, error) {
	data, err := r.rdb.GetDel(ctx, draftKey(owner, key)).Bytes()
	if err == redis.Nil {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume draft: %w", err)
	}
	return data, nil
}

// Discard removes the draft if present
func (r *DraftRepository) Discard(ctx context.Context, owner, key string) error {
	if err := r.rdb.Del(ctx, draftKey(owner, key)).Err(); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}
