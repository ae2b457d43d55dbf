package services

import (
	"context"
	"slices"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RestaurantInput carries the writable fields of a restaurant
type RestaurantInput struct {
	Name        string   `json:"name"`
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Weblink     *string  `json:"weblink"`
	FoodIDs     []string `json:"foodIds"`
}

// RestaurantService reads and writes restaurants in the dedicated restaurant service
type RestaurantService struct {
	restaurants *clients.RestaurantClient
	foods       *clients.FoodClient
	loaders     *loaders.Factory
	fanout      int
}

// NewRestaurantService creates a new restaurant service
func NewRestaurantService(restaurants *clients.RestaurantClient, foods *clients.FoodClient, factory *loaders.Factory, fanout int) *RestaurantService {
	if fanout <= 0 {
		fanout = 8
	}
	return &RestaurantService{
		restaurants: restaurants,
		foods:       foods,
		loaders:     factory,
		fanout:      fanout,
	}
}

func (s *RestaurantService) List(ctx context.Context) ([]*models.Restaurant, error) {
	list, err := s.restaurants.List(ctx)
	if err != nil {
		return nil, clients.Wrap(err, "failed to load restaurants")
	}
	return list, nil
}

// Details returns the restaurant with its foods; foods that fail to load are skipped
func (s *RestaurantService) Details(ctx context.Context, id string) (*models.RestaurantDetails, error) {
	restaurant, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "restaurant not found")
	}

	resolved := loaders.LoadAll(ctx, s.loaders.For(ctx).Foods, restaurant.FoodIDList)
	foods := make([]*models.Food, 0, len(resolved))
	for _, foodID := range restaurant.FoodIDList {
		if f, ok := resolved[foodID]; ok {
			foods = append(foods, f)
		}
	}
	return &models.RestaurantDetails{Restaurant: *restaurant, Foods: foods}, nil
}

// Create stores the restaurant, then links each listed food to it. Linking is best effort.
func (s *RestaurantService) Create(ctx context.Context, in RestaurantInput) (*models.Restaurant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	foodIDs := in.FoodIDs
	if foodIDs == nil {
		foodIDs = []string{}
	}

	created, err := s.restaurants.Create(ctx, &models.Restaurant{
		Name:        name,
		Location:    in.Location,
		Description: in.Description,
		Category:    in.Category,
		Weblink:     in.Weblink,
		FoodIDList:  foodIDs,
	})
	if err != nil {
		return nil, clients.Wrap(err, "failed to create restaurant")
	}

	s.linkFoods(ctx, created.ID, foodIDs)
	log.Info().Str("restaurant_id", created.ID).Int("foods", len(foodIDs)).Msg("Restaurant created")
	return created, nil
}

// Update replaces the restaurant's fields
func (s *RestaurantService) Update(ctx context.Context, id string, in RestaurantInput) (*models.Restaurant, error) {
	current, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "restaurant not found")
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		current.Name = name
	}
	if in.Location != nil {
		current.Location = in.Location
	}
	if in.Description != nil {
		current.Description = in.Description
	}
	if in.Category != nil {
		current.Category = in.Category
	}
	if in.Weblink != nil {
		current.Weblink = in.Weblink
	}

	var added []string
	if in.FoodIDs != nil {
		for _, foodID := range in.FoodIDs {
			if !slices.Contains(current.FoodIDList, foodID) {
				added = append(added, foodID)
			}
		}
		current.FoodIDList = in.FoodIDs
	}

	updated, err := s.restaurants.Update(ctx, current)
	if err != nil {
		return nil, clients.Wrap(err, "failed to update restaurant")
	}
	s.linkFoods(ctx, id, added)
	return updated, nil
}

func (s *RestaurantService) linkFoods(ctx context.Context, restaurantID string, foodIDs []string) {
	var g errgroup.Group
	g.SetLimit(s.fanout)
	for _, foodID := range foodIDs {
		g.Go(func() error {
			food, err := s.foods.Get(ctx, foodID)
			if err != nil {
				log.Warn().Err(err).Str("food_id", foodID).Str("restaurant_id", restaurantID).Msg("Failed to load food for linking")
				return nil
			}
			food.RestaurantID = &restaurantID
			if _, err := s.foods.Update(ctx, food, nil); err != nil {
				log.Warn().Err(err).Str("food_id", foodID).Str("restaurant_id", restaurantID).Msg("Failed to link food to restaurant")
			}
			return nil
		})
	}
	_ = g.Wait()
}
