package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"foodhub-gateway/internal/repository"
	"foodhub-gateway/pkg/apperrors"
)

// Draft keys shared by the review and restaurant creation flows
const (
	DraftCreatedFood       = "createdFoodForReview"
	DraftCreatedRestaurant = "createdRestaurantForReview"
	DraftPendingReview     = "pendingReviewDraft"
	DraftPendingRestaurant = "pendingRestaurantDraft"
)

var draftKeys = map[string]bool{
	DraftCreatedFood:       true,
	DraftCreatedRestaurant: true,
	DraftPendingReview:     true,
	DraftPendingRestaurant: true,
}

var flowIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// DraftStore keeps draft payloads per owner and key
type DraftStore interface {
	Save(ctx context.Context, owner, key string, payload []byte) error
	Peek(ctx context.Context, owner, key string) ([]byte, error)
	Consume(ctx context.Context, owner, key string) ([]byte, error)
	Discard(ctx context.Context, owner, key string) error
}

// DraftService is the scratch pad that carries entities between creation flows
type DraftService struct {
	store DraftStore
}

// NewDraftService creates a new draft service
func NewDraftService(store DraftStore) *DraftService {
	return &DraftService{store: store}
}

// Owner namespaces drafts by user and, when given, by the client's flow id
func Owner(userID, flowID string) (string, error) {
	if userID == "" {
		return "", apperrors.NewUnauthorizedError("sign in to use drafts")
	}
	if flowID == "" {
		return userID, nil
	}
	if !flowIDPattern.MatchString(flowID) {
		return "", apperrors.NewValidationError("invalid flow id")
	}
	return userID + "/" + flowID, nil
}

// Save stores payload under key, replacing the previous draft
func (s *DraftService) Save(ctx context.Context, owner, key string, payload json.RawMessage) error {
	if err := validateDraftKey(key); err != nil {
		return err
	}
	if !json.Valid(payload) {
		return apperrors.NewValidationError("draft must be valid JSON")
	}
	if err := s.store.Save(ctx, owner, key, payload); err != nil {
		return apperrors.NewInternalError("failed to save draft", err)
	}
	return nil
}

// Store marshals v and saves it under key
func (s *DraftService) Store(ctx context.Context, owner, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewInternalError("failed to encode draft", err)
	}
	return s.Save(ctx, owner, key, payload)
}

// Consume returns the draft and removes it; a second call finds nothing
func (s *DraftService) Consume(ctx context.Context, owner, key string) (json.RawMessage, error) {
	if err := validateDraftKey(key); err != nil {
		return nil, err
	}
	data, err := s.store.Consume(ctx, owner, key)
	return draftResult(data, err)
}

// Peek returns the draft without removing it
func (s *DraftService) Peek(ctx context.Context, owner, key string) (json.RawMessage, error) {
	if err := validateDraftKey(key); err != nil {
		return nil, err
	}
	data, err := s.store.Peek(ctx, owner, key)
	return draftResult(data, err)
}

// Discard drops the draft if present
func (s *DraftService) Discard(ctx context.Context, owner, key string) error {
	if err := validateDraftKey(key); err != nil {
		return err
	}
	if err := s.store.Discard(ctx, owner, key); err != nil {
		return apperrors.NewInternalError("failed to discard draft", err)
	}
	return nil
}

func validateDraftKey(key string) error {
	if !draftKeys[key] {
		return apperrors.NewValidationError("unknown draft key " + key)
	}
	return nil
}

func draftResult(data []byte, err error) (json.RawMessage, error) {
	if errors.Is(err, repository.ErrDraftNotFound) {
		return nil, apperrors.NewNotFoundError("no draft")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read draft", err)
	}
	return json.RawMessage(data), nil
}
