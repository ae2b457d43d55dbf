package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
)

// VisitInput is a visit logged by the caller
type VisitInput struct {
	RestaurantName string   `json:"restaurantName"`
	Location       *string  `json:"location"`
	Time           string   `json:"time"`
	Foods          []string `json:"foods"`
}

// VisitService handles the legacy visit records
type VisitService struct {
	visits  *clients.VisitClient
	users   *clients.UserClient
	toggler *Toggler
}

// NewVisitService creates a new visit service
func NewVisitService(visits *clients.VisitClient, users *clients.UserClient, toggler *Toggler) *VisitService {
	return &VisitService{
		visits:  visits,
		users:   users,
		toggler: toggler,
	}
}

func (s *VisitService) List(ctx context.Context) ([]*models.Visit, error) {
	visits, err := s.visits.List(ctx)
	if err != nil {
		return nil, clients.Wrap(err, "failed to load visits")
	}
	return visits, nil
}

// RestaurantsFromVisits groups visits by trimmed restaurant name in order of first appearance
func (s *VisitService) RestaurantsFromVisits(ctx context.Context) ([]*models.VisitRestaurant, error) {
	visits, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupVisits(visits), nil
}

// GroupVisits synthesizes one restaurant per distinct visit restaurant name
func GroupVisits(visits []*models.Visit) []*models.VisitRestaurant {
	byName := make(map[string]*models.VisitRestaurant)
	order := make([]string, 0)

	for _, v := range visits {
		name := strings.TrimSpace(v.RestaurantName)
		if name == "" {
			name = "Unknown"
		}
		group, ok := byName[name]
		if !ok {
			id := v.ID
			if id == "" {
				id = name
			}
			group = &models.VisitRestaurant{
				ID:      id,
				Name:    name,
				Address: models.Deref(v.Location),
			}
			byName[name] = group
			order = append(order, name)
		}
		group.RecentVisits = append(group.RecentVisits, v)
	}

	out := make([]*models.VisitRestaurant, 0, len(order))
	for _, name := range order {
		group := byName[name]
		n := len(group.RecentVisits)
		if n == 1 {
			group.Description = "1 recent visit"
		} else {
			group.Description = fmt.Sprintf("%d recent visits", n)
		}
		out = append(out, group)
	}
	return out
}

// Create logs a visit for the caller and appends it to the caller's visit list
func (s *VisitService) Create(ctx context.Context, userID string, in VisitInput) (*models.Visit, error) {
	if strings.TrimSpace(in.RestaurantName) == "" {
		return nil, apperrors.NewValidationError("restaurantName is required")
	}
	visitTime := in.Time
	if visitTime == "" {
		visitTime = models.Now()
	}
	foods := in.Foods
	if foods == nil {
		foods = []string{}
	}

	created, err := s.visits.Create(ctx, &models.Visit{
		UserID:         &userID,
		Location:       in.Location,
		Time:           visitTime,
		RestaurantName: strings.TrimSpace(in.RestaurantName),
		Foods:          foods,
	})
	if err != nil {
		return nil, clients.Wrap(err, "failed to create visit")
	}

	s.updateUserVisits(ctx, userID, created.ID, func(visits []string) []string {
		return appendUnique(visits, created.ID)
	})
	return created, nil
}

// Delete removes one of the caller's visits
func (s *VisitService) Delete(ctx context.Context, userID, id string) error {
	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		return clients.Wrap(err, "visit not found")
	}
	if owner := models.Deref(visit.UserID); owner != "" && owner != userID {
		return apperrors.NewForbiddenError("only the owner can delete this visit")
	}
	if err := s.visits.Delete(ctx, id); err != nil {
		return clients.Wrap(err, "failed to delete visit")
	}

	s.updateUserVisits(ctx, userID, id, func(visits []string) []string {
		return slices.DeleteFunc(visits, func(v string) bool { return v == id })
	})
	return nil
}

// updateUserVisits rewrites the user's visit list under the user's lock.
// The visit record is authoritative, so a failure here is only logged.
func (s *VisitService) updateUserVisits(ctx context.Context, userID, visitID string, change func([]string) []string) {
	unlock := s.toggler.Lock("user:" + userID)
	defer unlock()

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("visit_id", visitID).Msg("Failed to load user to update visits")
		return
	}
	before := len(user.Visits)
	user.Visits = change(user.Visits)
	if user.Visits == nil {
		user.Visits = []string{}
	}
	if len(user.Visits) == before {
		return
	}
	if _, err := s.users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("visit_id", visitID).Msg("Failed to update visits on user")
	}
}
