package services

import (
	"context"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
)

// HangoutInput is an invitation from the caller to another user
type HangoutInput struct {
	InviteeID     string   `json:"inviteeId"`
	RestaurantID  *string  `json:"restaurantId"`
	Message       *string  `json:"message"`
	AllocatedTime *string  `json:"allocatedTime"`
	FoodIDs       []string `json:"foodIds"`
}

// HangoutService handles two-party meetup invitations
type HangoutService struct {
	hangouts *clients.HangoutClient
	feed     *FeedService
	hub      *NotificationHub
}

// NewHangoutService creates a new hangout service
func NewHangoutService(hangouts *clients.HangoutClient, feed *FeedService, hub *NotificationHub) *HangoutService {
	return &HangoutService{
		hangouts: hangouts,
		feed:     feed,
		hub:      hub,
	}
}

// Create invites in.InviteeID. The caller is user 1 and approves their own invitation.
func (s *HangoutService) Create(ctx context.Context, callerID string, in HangoutInput) (*models.HangoutView, error) {
	invitee := strings.TrimSpace(in.InviteeID)
	if invitee == "" {
		return nil, apperrors.NewValidationError("inviteeId is required")
	}
	if invitee == callerID {
		return nil, apperrors.NewValidationError("cannot invite yourself")
	}

	foodIDs := in.FoodIDs
	if foodIDs == nil {
		foodIDs = []string{}
	}
	created, err := s.hangouts.Create(ctx, &models.Hangout{
		Message:         in.Message,
		UserID1:         &callerID,
		UserID2:         &invitee,
		RestaurantID:    in.RestaurantID,
		AllocatedTime:   in.AllocatedTime,
		FoodIDs:         foodIDs,
		ApprovedByUser1: models.Ptr(true),
	})
	if err != nil {
		return nil, clients.Wrap(err, "failed to create hangout")
	}

	s.hub.Notify(invitee, Event{Type: EventHangoutCreated, ActorID: callerID, SubjectID: created.ID})
	log.Info().Str("hangout_id", created.ID).Str("user_id", callerID).Str("invitee_id", invitee).Msg("Hangout created")
	return s.view(ctx, callerID, created), nil
}

// Respond sets the caller's own approval flag
func (s *HangoutService) Respond(ctx context.Context, callerID, id string, accept bool) (*models.HangoutView, error) {
	h, err := s.hangouts.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "hangout not found")
	}

	var other string
	switch callerID {
	case models.Deref(h.UserID1):
		h.ApprovedByUser1 = &accept
		other = models.Deref(h.UserID2)
	case models.Deref(h.UserID2):
		h.ApprovedByUser2 = &accept
		other = models.Deref(h.UserID1)
	default:
		return nil, apperrors.NewForbiddenError("not a participant of this hangout")
	}

	updated, err := s.hangouts.Update(ctx, h)
	if err != nil {
		return nil, clients.Wrap(err, "failed to update hangout")
	}
	if updated.ID == "" {
		updated = h
	}

	s.hub.Notify(other, Event{Type: EventHangoutUpdated, ActorID: callerID, SubjectID: id, Data: map[string]string{
		"status": string(updated.Status()),
	}})
	return s.view(ctx, callerID, updated), nil
}

// ListForUser returns the hangouts userID takes part in
func (s *HangoutService) ListForUser(ctx context.Context, userID string) ([]*models.HangoutView, error) {
	all, err := s.hangouts.List(ctx)
	if err != nil {
		return nil, clients.Wrap(err, "failed to load hangouts")
	}

	mine := make([]*models.Hangout, 0)
	counterparts := make([]string, 0)
	for _, h := range all {
		if other, ok := counterpart(h, userID); ok {
			mine = append(mine, h)
			counterparts = append(counterparts, other)
		}
	}
	authors := s.feed.ResolveUsers(ctx, counterparts)

	views := make([]*models.HangoutView, 0, len(mine))
	for _, h := range mine {
		views = append(views, buildHangoutView(h, userID, authors))
	}
	return views, nil
}

func (s *HangoutService) view(ctx context.Context, userID string, h *models.Hangout) *models.HangoutView {
	other, _ := counterpart(h, userID)
	return buildHangoutView(h, userID, s.feed.ResolveUsers(ctx, []string{other}))
}

func buildHangoutView(h *models.Hangout, userID string, authors map[string]models.Author) *models.HangoutView {
	other, _ := counterpart(h, userID)
	myFlag := h.ApprovedByUser1
	if models.Deref(h.UserID2) == userID {
		myFlag = h.ApprovedByUser2
	}
	status := h.Status()
	return &models.HangoutView{
		Hangout:     *h,
		Status:      status,
		Counterpart: authorOrID(authors, other),
		AwaitingMe:  status == models.HangoutPending && myFlag == nil,
	}
}

func counterpart(h *models.Hangout, userID string) (string, bool) {
	switch userID {
	case models.Deref(h.UserID1):
		return models.Deref(h.UserID2), true
	case models.Deref(h.UserID2):
		return models.Deref(h.UserID1), true
	}
	return "", false
}
