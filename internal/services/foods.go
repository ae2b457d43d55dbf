package services

import (
	"context"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/pkg/apperrors"
)

// FoodService handles dishes in the food service
type FoodService struct {
	foods *clients.FoodClient
}

// NewFoodService creates a new food service
func NewFoodService(foods *clients.FoodClient) *FoodService {
	return &FoodService{foods: foods}
}

func (s *FoodService) List(ctx context.Context) ([]*models.Food, error) {
	foods, err := s.foods.List(ctx)
	if err != nil {
		return nil, clients.Wrap(err, "failed to load foods")
	}
	return foods, nil
}

// ListByUser returns the foods created by userID
func (s *FoodService) ListByUser(ctx context.Context, userID string) ([]*models.Food, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Food, 0)
	for _, f := range all {
		if models.Deref(f.UserID) == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FoodService) Get(ctx context.Context, id string) (*models.Food, error) {
	food, err := s.foods.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "food not found")
	}
	return food, nil
}

// Create stores a food owned by userID, with an optional image
func (s *FoodService) Create(ctx context.Context, userID string, food *models.Food, image *clients.Image) (*models.Food, error) {
	food.Name = strings.TrimSpace(food.Name)
	if food.Name == "" {
		return nil, apperrors.NewValidationError("f_name is required")
	}
	food.ID = ""
	food.UserID = &userID

	created, err := s.foods.Create(ctx, food, image)
	if err != nil {
		return nil, clients.Wrap(err, "failed to create food")
	}
	return created, nil
}

// Update replaces the caller's food
func (s *FoodService) Update(ctx context.Context, userID, id string, food *models.Food, image *clients.Image) (*models.Food, error) {
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	food.ID = id
	food.UserID = current.UserID
	if strings.TrimSpace(food.Name) == "" {
		food.Name = current.Name
	}
	if food.NutritionTable == nil {
		food.NutritionTable = current.NutritionTable
	}

	updated, err := s.foods.Update(ctx, food, image)
	if err != nil {
		return nil, clients.Wrap(err, "failed to update food")
	}
	return updated, nil
}

// Delete removes the caller's food
func (s *FoodService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.foods.Delete(ctx, id); err != nil {
		return clients.Wrap(err, "failed to delete food")
	}
	return nil
}

func (s *FoodService) owned(ctx context.Context, userID, id string) (*models.Food, error) {
	return ownedFood(ctx, s.foods, userID, id)
}

// ownedFood loads a food and rejects callers other than its creator
func ownedFood(ctx context.Context, foods *clients.FoodClient, userID, id string) (*models.Food, error) {
	food, err := foods.Get(ctx, id)
	if err != nil {
		return nil, clients.Wrap(err, "food not found")
	}
	if owner := models.Deref(food.UserID); owner != "" && owner != userID {
		return nil, apperrors.NewForbiddenError("only the creator can change this food")
	}
	return food, nil
}
