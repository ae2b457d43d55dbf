package services

import (
	"context"
	"slices"
	"sort"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/observability"
	"foodhub-gateway/internal/session"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Feed sort orders
const (
	SortNewest   = "newest"
	SortLikes    = "likes"
	SortComments = "comments"
)

// FeedQuery filters and orders the aggregated feed
type FeedQuery struct {
	Query string
	Sort  string
	Limit int
}

// FeedService merges reviews with their authors and targets into display-ready posts
type FeedService struct {
	reviews *clients.ReviewClient
	loaders *loaders.Factory
}

// NewFeedService creates a new feed service
func NewFeedService(reviews *clients.ReviewClient, factory *loaders.Factory) *FeedService {
	return &FeedService{
		reviews: reviews,
		loaders: factory,
	}
}

// Feed returns every review as a post. Per-item lookup failures degrade the post, never the feed.
func (s *FeedService) Feed(ctx context.Context, q FeedQuery) ([]*models.FeedPost, error) {
	ctx, span := observability.StartSpan(ctx, "FeedService.Feed")
	defer span.End()

	reviews, err := s.reviews.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, clients.Wrap(err, "failed to load reviews")
	}

	posts := s.Aggregate(ctx, reviews)
	posts = FilterPosts(posts, q.Query)
	SortPosts(posts, q.Sort)
	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	span.SetAttributes(attribute.Int("feed.posts", len(posts)))
	return posts, nil
}

// UserFeed returns the posts written by userID, newest first
func (s *FeedService) UserFeed(ctx context.Context, userID string) ([]*models.FeedPost, error) {
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, clients.Wrap(err, "failed to load user reviews")
	}
	posts := s.Aggregate(ctx, reviews)
	SortPosts(posts, SortNewest)
	return posts, nil
}

// ReviewDetails returns one post with its comments and their authors resolved
func (s *FeedService) ReviewDetails(ctx context.Context, reviewID string) (*models.FeedPost, error) {
	review, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, clients.Wrap(err, "review not found")
	}

	comments, err := s.reviews.ListCommentsByReview(ctx, reviewID)
	if err != nil {
		log.Warn().Err(err).Str("review_id", reviewID).Msg("Failed to load comments")
		comments = nil
	}

	ids := make([]string, 0, len(comments)+1)
	ids = append(ids, review.AuthorID())
	for _, c := range comments {
		ids = append(ids, models.Deref(c.UserID))
	}
	authors := s.ResolveUsers(ctx, ids)

	post := s.buildPost(ctx, review, authors, s.resolveTargets(ctx, []*models.Review{review}))
	post.Comments = make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		post.Comments = append(post.Comments, models.CommentView{
			ID:        c.ID,
			Author:    authorOrID(authors, models.Deref(c.UserID)),
			Text:      c.Content,
			CreatedAt: c.CreatedAt,
		})
	}
	sort.SliceStable(post.Comments, func(i, j int) bool {
		return newer(post.Comments[j].CreatedAt, post.Comments[i].CreatedAt)
	})
	if len(comments) > post.CommentCount {
		post.CommentCount = len(comments)
	}
	return post, nil
}

// ResolveUsers resolves distinct ids to authors. A failed lookup yields the raw id as the name.
func (s *FeedService) ResolveUsers(ctx context.Context, ids []string) map[string]models.Author {
	if len(ids) == 0 {
		return map[string]models.Author{}
	}
	return loaders.LoadAll(ctx, s.loaders.For(ctx).Authors, ids)
}

// Aggregate turns reviews into posts in their original order
func (s *FeedService) Aggregate(ctx context.Context, reviews []*models.Review) []*models.FeedPost {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.AuthorID())
	}
	authors := s.ResolveUsers(ctx, ids)
	targets := s.resolveTargets(ctx, reviews)

	posts := make([]*models.FeedPost, 0, len(reviews))
	for _, r := range reviews {
		posts = append(posts, s.buildPost(ctx, r, authors, targets))
	}
	return posts
}

type resolvedTargets struct {
	foods       map[string]*models.Food
	restaurants map[string]*models.Restaurant
}

func (s *FeedService) resolveTargets(ctx context.Context, reviews []*models.Review) resolvedTargets {
	var foodIDs, restaurantIDs []string
	for _, r := range reviews {
		switch kind, id := r.Target(); kind {
		case models.TargetFood:
			foodIDs = append(foodIDs, id)
		case models.TargetRestaurant:
			restaurantIDs = append(restaurantIDs, id)
		}
	}

	l := s.loaders.For(ctx)
	return resolvedTargets{
		foods:       loaders.LoadAll(ctx, l.Foods, foodIDs),
		restaurants: loaders.LoadAll(ctx, l.Restaurants, restaurantIDs),
	}
}

func (s *FeedService) buildPost(ctx context.Context, r *models.Review, authors map[string]models.Author, targets resolvedTargets) *models.FeedPost {
	me := session.UserID(ctx)
	kind, targetID := r.Target()

	target := models.ReviewTarget{Type: kind, ID: targetID}
	switch kind {
	case models.TargetFood:
		target.Food = targets.foods[targetID]
	case models.TargetRestaurant:
		target.Restaurant = targets.restaurants[targetID]
	}

	return &models.FeedPost{
		ID:           r.ID,
		Author:       authorOrID(authors, r.AuthorID()),
		Title:        r.Title,
		Description:  r.Description,
		Target:       target,
		Likes:        len(r.ReactionUsersLike),
		Dislikes:     len(r.ReactionUsersDislike),
		LikedByMe:    me != "" && slices.Contains(r.ReactionUsersLike, me),
		DislikedByMe: me != "" && slices.Contains(r.ReactionUsersDislike, me),
		CommentCount: len(r.Comments),
		CreatedAt:    r.CreatedAt,
		Sentiment:    models.Deref(r.Sentiment),
	}
}

func authorOrID(authors map[string]models.Author, id string) models.Author {
	if a, ok := authors[id]; ok {
		return a
	}
	return models.Author{ID: id, Name: id}
}

// FilterPosts keeps posts whose title, description, author or sentiment contains query
func FilterPosts(posts []*models.FeedPost, query string) []*models.FeedPost {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return posts
	}
	out := posts[:0:0]
	for _, p := range posts {
		fields := []string{p.Title, p.Description, p.Author.Name, p.Sentiment}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), query) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// SortPosts orders posts in place; unknown orders keep the backend order
func SortPosts(posts []*models.FeedPost, order string) {
	switch order {
	case SortNewest:
		sort.SliceStable(posts, func(i, j int) bool { return newer(posts[i].CreatedAt, posts[j].CreatedAt) })
	case SortLikes:
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].Likes > posts[j].Likes })
	case SortComments:
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].CommentCount > posts[j].CommentCount })
	}
}

// newer reports whether a is strictly later than b; unparseable timestamps sort last
func newer(a, b string) bool {
	ta, okA := models.ParseTimestamp(a)
	tb, okB := models.ParseTimestamp(b)
	switch {
	case okA && okB:
		return ta.After(tb)
	case okA:
		return true
	default:
		return false
	}
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
