package services

import (
	"context"
	"encoding/json"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/loaders"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
)

// Paid operation names recorded on reservations
const (
	OperationRecommendation = "ai_recommendation"
	OperationNutrition      = "nutrition_generation"
)

// Costs prices each paid operation in coins
type Costs struct {
	Recommendation int64
	Nutrition      int64
}

// PaidOperations runs premium features against the coin ledger
type PaidOperations struct {
	ledger      *LedgerService
	recommender *clients.RecommendationClient
	nutrition   *clients.NutritionClient
	foods       *clients.FoodClient
	loaders     *loaders.Factory
	costs       Costs
}

// NewPaidOperations creates the paid operations service
func NewPaidOperations(ledger *LedgerService, recommender *clients.RecommendationClient, nutrition *clients.NutritionClient, foods *clients.FoodClient, factory *loaders.Factory, costs Costs) *PaidOperations {
	return &PaidOperations{
		ledger:      ledger,
		recommender: recommender,
		nutrition:   nutrition,
		foods:       foods,
		loaders:     factory,
		costs:       costs,
	}
}

// Run reserves cost, runs fn and commits on success or releases on failure.
// fn never runs when the balance cannot cover cost. A free operation skips the ledger.
func (p *PaidOperations) Run(ctx context.Context, userID, operation string, cost int64, fn func(ctx context.Context) error) error {
	if cost == 0 {
		if userID == "" {
			return apperrors.NewUnauthorizedError("sign in to use " + operation)
		}
		return fn(ctx)
	}

	res, err := p.ledger.Reserve(ctx, userID, cost, operation)
	if err != nil {
		return err
	}

	// settlement must happen even if the caller went away
	settleCtx := context.WithoutCancel(ctx)

	if err := fn(ctx); err != nil {
		if relErr := p.ledger.Release(settleCtx, res.ID); relErr != nil {
			log.Error().Err(relErr).Str("reservation_id", res.ID).Str("user_id", userID).Msg("Failed to release coins; left for the sweeper")
		}
		return err
	}

	if err := p.ledger.Commit(settleCtx, res.ID); err != nil {
		log.Error().Err(err).Str("reservation_id", res.ID).Str("user_id", userID).Msg("Failed to commit coins")
	}
	return nil
}

// Recommend asks the recommendation agent, charging the caller
func (p *PaidOperations) Recommend(ctx context.Context, q models.RecommendationQuery) (*models.Recommendation, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	var rec *models.Recommendation
	err := p.Run(ctx, session.UserID(ctx), OperationRecommendation, p.costs.Recommendation, func(ctx context.Context) error {
		var err error
		rec, err = p.recommender.Recommend(ctx, q)
		if err != nil {
			return clients.Wrap(err, "recommendation agent failed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.resolve(ctx, rec)
	return rec, nil
}

// resolve attaches the stored restaurant or food to every suggestion carrying a db_id.
// Suggestions whose record cannot be loaded keep only the agent's fields.
func (p *PaidOperations) resolve(ctx context.Context, rec *models.Recommendation) {
	if p.loaders == nil {
		return
	}
	l := p.loaders.For(ctx)

	placeIDs := make([]string, 0, len(rec.RecommendedRestaurants))
	for _, r := range rec.RecommendedRestaurants {
		placeIDs = append(placeIDs, r.DBID)
	}
	foodIDs := make([]string, 0, len(rec.RecommendedFoods))
	for _, f := range rec.RecommendedFoods {
		foodIDs = append(foodIDs, f.DBID)
	}

	places := loaders.LoadAll(ctx, l.Restaurants, placeIDs)
	foods := loaders.LoadAll(ctx, l.Foods, foodIDs)
	for i := range rec.RecommendedRestaurants {
		rec.RecommendedRestaurants[i].Details = places[rec.RecommendedRestaurants[i].DBID]
	}
	for i := range rec.RecommendedFoods {
		rec.RecommendedFoods[i].Details = foods[rec.RecommendedFoods[i].DBID]
	}
}

// GenerateNutrition analyzes the photo of one of the caller's foods and stores the result on it.
// Ownership is checked before any coin is reserved.
func (p *PaidOperations) GenerateNutrition(ctx context.Context, foodID string) (*models.Food, error) {
	userID := session.UserID(ctx)
	food, err := ownedFood(ctx, p.foods, userID, foodID)
	if err != nil {
		return nil, err
	}
	imageURL := strings.TrimSpace(models.Deref(food.ImageURL))
	if imageURL == "" {
		return nil, apperrors.NewValidationError("food has no image to analyze")
	}

	var updated *models.Food
	err = p.Run(ctx, userID, OperationNutrition, p.costs.Nutrition, func(ctx context.Context) error {
		nutrition, err := p.nutrition.Analyze(ctx, imageURL)
		if err != nil {
			return clients.Wrap(err, "nutrition agent failed")
		}
		table, err := json.Marshal(nutrition)
		if err != nil {
			return apperrors.NewInternalError("failed to encode nutrition table", err)
		}
		food.NutritionTable = models.Ptr(string(table))

		updated, err = p.foods.Update(ctx, food, nil)
		if err != nil {
			return clients.Wrap(err, "failed to store nutrition table")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
