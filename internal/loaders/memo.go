package loaders

import (
	"context"
	"time"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/observability"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// UserMemo is a bounded, expiring cache of user display identities shared across requests
type UserMemo struct {
	cache   *expirable.LRU[string, models.Author]
	metrics *observability.Metrics
}

// NewUserMemo creates a memo holding at most size entries for ttl each
func NewUserMemo(size int, ttl time.Duration, metrics *observability.Metrics) *UserMemo {
	return &UserMemo{
		cache:   expirable.NewLRU[string, models.Author](size, nil, ttl),
		metrics: metrics,
	}
}

func (m *UserMemo) Get(ctx context.Context, id string) (models.Author, bool) {
	author, ok := m.cache.Get(id)
	if ok {
		m.metrics.Add(ctx, observability.MemoHits, 1)
	} else {
		m.metrics.Add(ctx, observability.MemoMisses, 1)
	}
	return author, ok
}

func (m *UserMemo) Put(author models.Author) {
	m.cache.Add(author.ID, author)
}

// Invalidate drops ids so the next lookup goes to the user service
func (m *UserMemo) Invalidate(ids ...string) {
	for _, id := range ids {
		m.cache.Remove(id)
	}
}

func (m *UserMemo) Len() int {
	return m.cache.Len()
}
