package services

import (
	"context"
	"slices"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
)

type reaction string

const (
	reactionLike    reaction = "like"
	reactionDislike reaction = "dislike"
)

// ReactionResult is the settled state of a like or dislike toggle
type ReactionResult struct {
	ReviewID string      `json:"reviewId"`
	Active   bool        `json:"active"`
	Count    int         `json:"count"`
	State    ToggleState `json:"state"`
}

// ReviewInput carries the writable fields of a review
type ReviewInput struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	FoodID       *string `json:"foodId"`
	RestaurantID *string `json:"restaurantId"`
	Sentiment    *string `json:"sentiment"`
}

// Validate checks that the review input is usable
func (in ReviewInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.NewValidationError("title is required")
	}
	if models.Deref(in.FoodID) != "" && models.Deref(in.RestaurantID) != "" {
		return apperrors.NewValidationError("a review targets a food or a restaurant, not both")
	}
	return nil
}

// ReviewService handles review writes: authoring, comments and reactions
type ReviewService struct {
	reviews *clients.ReviewClient
	toggler *Toggler
	hub     *NotificationHub
}

// NewReviewService creates a new review service
func NewReviewService(reviews *clients.ReviewClient, toggler *Toggler, hub *NotificationHub) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		toggler: toggler,
		hub:     hub,
	}
}

// Create publishes a review authored by the caller
func (s *ReviewService) Create(ctx context.Context, in ReviewInput) (*models.Review, error) {
	userID := session.UserID(ctx)
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in to post a review")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:                strings.TrimSpace(in.Title),
		Description:          in.Description,
		FoodID:               nonEmpty(in.FoodID),
		RestaurantID:         nonEmpty(in.RestaurantID),
		UserID:               &userID,
		ReactionUsersLike:    []string{},
		ReactionUsersDislike: []string{},
		Comments:             []string{},
		CreatedAt:            models.Now(),
		Sentiment:            in.Sentiment,
	}
	created, err := s.reviews.Create(ctx, review)
	if err != nil {
		return nil, clients.Wrap(err, "failed to create review")
	}
	log.Info().Str("review_id", created.ID).Str("user_id", userID).Msg("Review created")
	return created, nil
}

// Update edits the caller's own review
func (s *ReviewService) Update(ctx context.Context, id string, in ReviewInput) (*models.Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	unlock := s.toggler.Lock("review:" + id)
	defer unlock()

	review, err := s.ownReview(ctx, id)
	if err != nil {
		return nil, err
	}
	review.Title = strings.TrimSpace(in.Title)
	review.Description = in.Description
	review.FoodID = nonEmpty(in.FoodID)
	review.RestaurantID = nonEmpty(in.RestaurantID)
	if in.Sentiment != nil {
		review.Sentiment = in.Sentiment
	}
	review.UpdatedAt = models.Now()

	updated, err := s.reviews.Update(ctx, review)
	if err != nil {
		return nil, clients.Wrap(err, "failed to update review")
	}
	return updated, nil
}

// Delete removes the caller's own review
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	if _, err := s.ownReview(ctx, id); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return clients.Wrap(err, "failed to delete review")
	}
	log.Info().Str("review_id", id).Msg("Review deleted")
	return nil
}

// AddComment posts a comment by the caller and notifies the review author
func (s *ReviewService) AddComment(ctx context.Context, reviewID, text string) (*models.Comment, error) {
	userID := session.UserID(ctx)
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in to comment")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required")
	}

	review, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, clients.Wrap(err, "review not found")
	}

	comment, err := s.reviews.CreateComment(ctx, &models.Comment{
		ReviewID:  reviewID,
		UserID:    &userID,
		Content:   text,
		CreatedAt: models.Now(),
	})
	if err != nil {
		return nil, clients.Wrap(err, "failed to add comment")
	}

	if author := review.AuthorID(); author != userID {
		s.hub.Notify(author, Event{Type: EventCommentAdded, ActorID: userID, SubjectID: reviewID})
	}
	return comment, nil
}

// ToggleLike flips the caller's membership in the review's like set
func (s *ReviewService) ToggleLike(ctx context.Context, reviewID string) (*ReactionResult, error) {
	return s.toggleReaction(ctx, reviewID, reactionLike)
}

// ToggleDislike flips the caller's membership in the review's dislike set
func (s *ReviewService) ToggleDislike(ctx context.Context, reviewID string) (*ReactionResult, error) {
	return s.toggleReaction(ctx, reviewID, reactionDislike)
}

func (s *ReviewService) toggleReaction(ctx context.Context, reviewID string, kind reaction) (*ReactionResult, error) {
	userID := session.UserID(ctx)
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in to react to reviews")
	}

	// read-modify-write of the whole record, so writers of one review take turns
	unlock := s.toggler.Lock("review:" + reviewID)
	defer unlock()

	review, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, clients.Wrap(err, "review not found")
	}

	users := reactionUsers(review, kind)
	active := slices.Contains(users, userID)
	count := len(users)

	toggle := s.toggler.Run(ctx, string(kind)+":"+reviewID+":"+userID, active, func(ctx context.Context) error {
		next := *review
		if active {
			setReaction(&next, kind, without(users, userID))
		} else {
			setReaction(&next, kind, append(slices.Clone(users), userID))
		}
		updated, err := s.reviews.Update(ctx, &next)
		if err != nil {
			return err
		}
		if updated != nil && updated.ID != "" {
			count = len(reactionUsers(updated, kind))
		} else {
			count = len(reactionUsers(&next, kind))
		}
		return nil
	})

	result := &ReactionResult{
		ReviewID: reviewID,
		Active:   toggle.Value(),
		Count:    count,
		State:    toggle.State,
	}
	if toggle.State == ToggleRolledBack {
		return result, clients.Wrap(toggle.Err, "failed to update reaction")
	}

	if kind == reactionLike && result.Active {
		if author := review.AuthorID(); author != userID {
			s.hub.Notify(author, Event{Type: EventReviewLiked, ActorID: userID, SubjectID: reviewID})
		}
	}
	return result, nil
}

func (s *ReviewService) ownReview(ctx context.Context, id string) (*models.Review, error) {
	userID := session.UserID(ctx)
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in to edit reviews")
	}
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "review not found")
	}
	if review.AuthorID() != userID {
		return nil, apperrors.NewForbiddenError("only the author can change this review")
	}
	return review, nil
}

func reactionUsers(r *models.Review, kind reaction) []string {
	if kind == reactionLike {
		return r.ReactionUsersLike
	}
	return r.ReactionUsersDislike
}

// setReaction replaces the set and recounts it
func setReaction(r *models.Review, kind reaction, users []string) {
	if kind == reactionLike {
		r.ReactionUsersLike = users
		r.ReactionCountLike = len(users)
		return
	}
	r.ReactionUsersDislike = users
	r.ReactionCountDislike = len(users)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
