package services

import (
	"context"
	"slices"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProfileUpdate carries the editable profile fields; nil fields are left unchanged
type ProfileUpdate struct {
	Name       *string `json:"name"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Location   *string `json:"location"`
	UserPhoto  *string `json:"userPhoto"`
	CoverPhoto *string `json:"coverPhoto"`
}

// FollowResult is the settled state of a follow toggle
type FollowResult struct {
	UserID    string      `json:"userId"`
	Following bool        `json:"following"`
	Followers int         `json:"followers"`
	State     ToggleState `json:"state"`
}

// ProfileService handles user profiles, follows and the critic score
type ProfileService struct {
	users    *clients.UserClient
	reviews  *clients.ReviewClient
	feed     *FeedService
	hangouts *HangoutService
	ledger   *LedgerService
	memo     *loaders.UserMemo
	toggler  *Toggler
	hub      *NotificationHub
}

// NewProfileService creates a new profile service
func NewProfileService(
	users *clients.UserClient,
	reviews *clients.ReviewClient,
	feed *FeedService,
	hangouts *HangoutService,
	ledger *LedgerService,
	memo *loaders.UserMemo,
	toggler *Toggler,
	hub *NotificationHub,
) *ProfileService {
	return &ProfileService{
		users:    users,
		reviews:  reviews,
		feed:     feed,
		hangouts: hangouts,
		ledger:   ledger,
		memo:     memo,
		toggler:  toggler,
		hub:      hub,
	}
}

// GetUser returns one user record
func (s *ProfileService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "user not found")
	}
	return user, nil
}

// ListUsers returns every user; an unavailable user service yields an empty list
func (s *ProfileService) ListUsers(ctx context.Context) []*models.User {
	return s.users.List(ctx)
}

// Profile aggregates a user's record, reviews, hangouts and coin balance
func (s *ProfileService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	isSelf := session.UserID(ctx) == userID
	var user *models.User
	var err error
	if isSelf {
		user, err = s.ledger.User(ctx, userID)
	} else {
		user, err = s.GetUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		User:           user,
		Coins:          int64(user.Coins),
		FollowerCount:  len(user.Followers),
		FollowingCount: len(user.Following),
		Reviews:        []*models.FeedPost{},
		Hangouts:       []*models.HangoutView{},
	}

	var g errgroup.Group
	g.Go(func() error {
		posts, err := s.feed.UserFeed(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load profile reviews")
			return nil
		}
		profile.Reviews = posts
		return nil
	})
	if isSelf {
		g.Go(func() error {
			views, err := s.hangouts.ListForUser(ctx, userID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load profile hangouts")
				return nil
			}
			profile.Hangouts = views
			return nil
		})
		g.Go(func() error {
			balance, err := s.ledger.Balance(ctx, userID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load coin balance")
				return nil
			}
			profile.Coins = balance
			return nil
		})
	}
	_ = g.Wait()

	return profile, nil
}

// SyncCriticScore recomputes the score as review count plus follower count and
// writes it back only when it differs from the stored value
func (s *ProfileService) SyncCriticScore(ctx context.Context, userID string) (float64, bool, error) {
	var (
		user    *models.User
		reviews []*models.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.Get(gctx, userID)
		return clients.Wrap(err, "user not found")
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviews.ListByUser(gctx, userID)
		return clients.Wrap(err, "failed to load user reviews")
	})
	if err := g.Wait(); err != nil {
		return 0, false, err
	}

	score := float64(len(reviews) + len(user.Followers))
	if score == user.TotalCriticScore {
		return score, false, nil
	}

	user.TotalCriticScore = score
	if _, err := s.users.Update(ctx, user); err != nil {
		return 0, false, clients.Wrap(err, "failed to store critic score")
	}
	log.Info().Str("user_id", userID).Float64("score", score).Msg("Critic score updated")
	return score, true, nil
}

// UpdateProfile merges update over the caller's current record
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	unlock := s.toggler.Lock("user:" + userID)
	defer unlock()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty")
		}
		user.Name = &name
	}
	mergeString(&user.FirstName, update.FirstName)
	mergeString(&user.LastName, update.LastName)
	mergeString(&user.Location, update.Location)
	mergeString(&user.UserPhoto, update.UserPhoto)
	mergeString(&user.CoverPhoto, update.CoverPhoto)

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, clients.Wrap(err, "failed to update profile")
	}
	s.memo.Invalidate(userID)
	return updated, nil
}

// ToggleFollow flips whether the caller follows targetID, writing both user records
func (s *ProfileService) ToggleFollow(ctx context.Context, targetID string) (*FollowResult, error) {
	callerID := session.UserID(ctx)
	if callerID == "" {
		return nil, apperrors.NewUnauthorizedError("sign in to follow users")
	}
	if callerID == targetID {
		return nil, apperrors.NewValidationError("cannot follow yourself")
	}

	unlock := s.toggler.Lock("user:"+callerID, "user:"+targetID)
	defer unlock()

	var caller, target *models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		caller, err = s.users.Get(gctx, callerID)
		return clients.Wrap(err, "user not found")
	})
	g.Go(func() error {
		var err error
		target, err = s.users.Get(gctx, targetID)
		return clients.Wrap(err, "user not found")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	following := slices.Contains(caller.Following, targetID)
	followers := len(target.Followers)

	toggle := s.toggler.Run(ctx, "follow:"+callerID+":"+targetID, following, func(ctx context.Context) error {
		nextCaller, nextTarget := *caller, *target
		if following {
			nextCaller.Following = without(caller.Following, targetID)
			nextTarget.Followers = without(target.Followers, callerID)
		} else {
			nextCaller.Following = appendUnique(caller.Following, targetID)
			nextTarget.Followers = appendUnique(target.Followers, callerID)
		}
		if err := s.writePair(ctx, caller, target, &nextCaller, &nextTarget); err != nil {
			return err
		}
		followers = len(nextTarget.Followers)
		return nil
	})
	s.memo.Invalidate(callerID, targetID)

	result := &FollowResult{
		UserID:    targetID,
		Following: toggle.Value(),
		Followers: followers,
		State:     toggle.State,
	}
	if toggle.State == ToggleRolledBack {
		return result, clients.Wrap(toggle.Err, "failed to update follow")
	}
	if result.Following {
		s.hub.Notify(targetID, Event{Type: EventFollowed, ActorID: callerID, SubjectID: targetID})
	}
	return result, nil
}

// writePair writes both records in parallel. If only one write lands it is reverted.
func (s *ProfileService) writePair(ctx context.Context, prevA, prevB, nextA, nextB *models.User) error {
	var errA, errB error
	var g errgroup.Group
	g.Go(func() error {
		_, errA = s.users.Update(ctx, nextA)
		return nil
	})
	g.Go(func() error {
		_, errB = s.users.Update(ctx, nextB)
		return nil
	})
	_ = g.Wait()

	switch {
	case errA == nil && errB == nil:
		return nil
	case errA == nil:
		s.revert(ctx, prevA)
		return errB
	case errB == nil:
		s.revert(ctx, prevB)
		return errA
	default:
		return errA
	}
}

func (s *ProfileService) revert(ctx context.Context, prev *models.User) {
	if _, err := s.users.Update(context.WithoutCancel(ctx), prev); err != nil {
		log.Error().Err(err).Str("user_id", prev.ID).Msg("Failed to revert half-applied follow")
	}
}

func mergeString(dst **string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	*dst = &v
}

func appendUnique(list []string, v string) []string {
	out := slices.Clone(list)
	if !slices.Contains(out, v) {
		out = append(out, v)
	}
	return out
}
