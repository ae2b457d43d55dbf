package loaders

import (
	"context"
	"time"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/observability"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

const batchWait = 2 * time.Millisecond

// UserFetcher reads one user record
type UserFetcher interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// FoodFetcher reads one food record
type FoodFetcher interface {
	Get(ctx context.Context, id string) (*models.Food, error)
}

// RestaurantFetcher reads one restaurant record
type RestaurantFetcher interface {
	Get(ctx context.Context, id string) (*models.Restaurant, error)
}

// Loaders contains the per-request dataloaders
type Loaders struct {
	Authors     *dataloader.Loader[string, models.Author]
	Foods       *dataloader.Loader[string, *models.Food]
	Restaurants *dataloader.Loader[string, *models.Restaurant]
}

// Factory builds a fresh set of loaders for each request
type Factory struct {
	users       UserFetcher
	foods       FoodFetcher
	restaurants RestaurantFetcher
	memo        *UserMemo
	limit       int
	metrics     *observability.Metrics
}

// NewFactory creates a loader factory; limit bounds concurrent lookups per batch
func NewFactory(users UserFetcher, foods FoodFetcher, restaurants RestaurantFetcher, memo *UserMemo, limit int, metrics *observability.Metrics) *Factory {
	if limit <= 0 {
		limit = 8
	}
	return &Factory{
		users:       users,
		foods:       foods,
		restaurants: restaurants,
		memo:        memo,
		limit:       limit,
		metrics:     metrics,
	}
}

// Memo returns the shared user memo
func (f *Factory) Memo() *UserMemo {
	return f.memo
}

// New creates a new instance of Loaders
func (f *Factory) New() *Loaders {
	return &Loaders{
		Authors: dataloader.NewBatchedLoader(f.batchAuthors,
			dataloader.WithWait[string, models.Author](batchWait)),
		Foods: dataloader.NewBatchedLoader(batchFetch(f, "food", f.foods.Get),
			dataloader.WithWait[string, *models.Food](batchWait)),
		Restaurants: dataloader.NewBatchedLoader(batchFetch(f, "restaurant", f.restaurants.Get),
			dataloader.WithWait[string, *models.Restaurant](batchWait)),
	}
}

// For returns the loaders attached to ctx, or a fresh set when none are
func (f *Factory) For(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok && l != nil {
		return l
	}
	return f.New()
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// batchAuthors never fails a key: an author whose lookup fails is shown by raw id
func (f *Factory) batchAuthors(ctx context.Context, keys []string) []*dataloader.Result[models.Author] {
	results := make([]*dataloader.Result[models.Author], len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for i, id := range keys {
		if author, ok := f.memo.Get(ctx, id); ok {
			results[i] = &dataloader.Result[models.Author]{Data: author}
			continue
		}
		g.Go(func() error {
			f.metrics.Add(gctx, observability.FanoutLookups, 1, attribute.String("kind", "user"))
			user, err := f.users.Get(gctx, id)
			if err != nil {
				log.Warn().Err(err).Str("user_id", id).Msg("Failed to resolve author")
				results[i] = &dataloader.Result[models.Author]{Data: models.Author{ID: id, Name: id}}
				return nil
			}
			author := models.Author{ID: id, Name: user.DisplayName(), Avatar: user.Avatar()}
			f.memo.Put(author)
			results[i] = &dataloader.Result[models.Author]{Data: author}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func batchFetch[V any](f *Factory, kind string, get func(context.Context, string) (V, error)) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.limit)
		for i, id := range keys {
			g.Go(func() error {
				f.metrics.Add(gctx, observability.FanoutLookups, 1, attribute.String("kind", kind))
				v, err := get(gctx, id)
				if err != nil {
					log.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("Failed to resolve entity")
				}
				results[i] = &dataloader.Result[V]{Data: v, Error: err}
				return nil
			})
		}
		_ = g.Wait()
		return results
	}
}

// LoadAll resolves ids through loader and returns the successful results keyed by id
func LoadAll[V any](ctx context.Context, loader *dataloader.Loader[string, V], ids []string) map[string]V {
	out := make(map[string]V, len(ids))
	thunks := make(map[string]dataloader.Thunk[V], len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := thunks[id]; !ok {
			thunks[id] = loader.Load(ctx, id)
		}
	}
	for id, thunk := range thunks {
		if v, err := thunk(); err == nil {
			out[id] = v
		}
	}
	return out
}
