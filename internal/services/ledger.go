package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/observability"
	"foodhub-gateway/internal/repository"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"
	"foodhub-gateway/pkg/retry"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// LedgerStore persists coin accounts and reservations
type LedgerStore interface {
	EnsureAccount(ctx context.Context, userID string, seed int64) error
	Balance(ctx context.Context, userID string) (int64, error)
	Reserve(ctx context.Context, userID string, amount int64, operation string) (*models.Reservation, error)
	Commit(ctx context.Context, id string) (*models.Reservation, error)
	Release(ctx context.Context, id string) (*models.Reservation, error)
	ExpiredReservations(ctx context.Context, cutoff time.Time) ([]string, error)
}

// UserDirectory reads and registers user records
type UserDirectory interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// LedgerService owns coin balances. Coins leave a balance only through a reservation.
type LedgerService struct {
	store           LedgerStore
	users           UserDirectory
	startingBalance int64
	reservationTTL  time.Duration
	retry           retry.Config
	metrics         *observability.Metrics

	opened sync.Map
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store LedgerStore, users UserDirectory, startingBalance int64, reservationTTL time.Duration, metrics *observability.Metrics) *LedgerService {
	return &LedgerService{
		store:           store,
		users:           users,
		startingBalance: startingBalance,
		reservationTTL:  reservationTTL,
		retry:           retry.DefaultConfig(),
		metrics:         metrics,
	}
}

// SetRetry overrides the backoff used when settling reservations
func (s *LedgerService) SetRetry(cfg retry.Config) {
	s.retry = cfg
}

// Balance returns the caller's coins, opening the account on first use
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	if err := s.ensureAccount(ctx, userID); err != nil {
		return 0, err
	}
	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read balance", err)
	}
	return balance, nil
}

// Reserve takes amount from the balance, or fails with INSUFFICIENT_FUNDS leaving it untouched
func (s *LedgerService) Reserve(ctx context.Context, userID string, amount int64, operation string) (*models.Reservation, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive")
	}
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}

	res, err := s.store.Reserve(ctx, userID, amount, operation)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			s.metrics.Add(ctx, observability.LedgerRejections, 1, attribute.String("operation", operation))
			return nil, apperrors.NewInsufficientFundsError("not enough coins for " + operation)
		}
		return nil, apperrors.NewInternalError("failed to reserve coins", err)
	}
	s.metrics.Add(ctx, observability.LedgerReservations, 1, attribute.String("operation", operation))
	log.Debug().Str("user_id", userID).Str("reservation_id", res.ID).Int64("amount", amount).Msg("Coins reserved")
	return res, nil
}

// Commit settles a reservation as spent
func (s *LedgerService) Commit(ctx context.Context, id string) error {
	err := retry.Do(ctx, s.retry, func() error {
		_, err := s.store.Commit(ctx, id)
		return permanentOnLedgerError(err)
	}, logRetry("commit", id))
	if err != nil {
		return settleError(err)
	}
	s.metrics.Add(ctx, observability.LedgerCommits, 1)
	return nil
}

// Release returns a reservation's coins to the balance
func (s *LedgerService) Release(ctx context.Context, id string) error {
	err := retry.Do(ctx, s.retry, func() error {
		_, err := s.store.Release(ctx, id)
		return permanentOnLedgerError(err)
	}, logRetry("release", id))
	if err != nil {
		return settleError(err)
	}
	s.metrics.Add(ctx, observability.LedgerReleases, 1)
	return nil
}

// SweepExpired releases reservations left open longer than the reservation TTL
func (s *LedgerService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.store.ExpiredReservations(ctx, time.Now().Add(-s.reservationTTL))
	if err != nil {
		return 0, apperrors.NewInternalError("failed to list expired reservations", err)
	}

	released := 0
	for _, id := range ids {
		if _, err := s.store.Release(ctx, id); err != nil {
			log.Error().Err(err).Str("reservation_id", id).Msg("Failed to release expired reservation")
			continue
		}
		released++
	}
	if released > 0 {
		s.metrics.Add(ctx, observability.LedgerReleases, int64(released), attribute.Bool("sweep", true))
		log.Info().Int("released", released).Msg("Released expired reservations")
	}
	return released, nil
}

// RunSweeper sweeps every interval until ctx is cancelled
func (s *LedgerService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				log.Error().Err(err).Msg("Reservation sweep failed")
			}
		}
	}
}

// User returns the user record. A caller without one is registered with the starting
// balance on first sight, using the profile from their token.
func (s *LedgerService) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err == nil {
		return user, nil
	}
	sess := session.FromContext(ctx)
	if !clients.IsNotFound(err) || sess == nil || sess.UserID != userID {
		return nil, clients.Wrap(err, "user not found")
	}

	id := sess.Identity
	user = &models.User{
		ID:        userID,
		Name:      optional(id.Name),
		FirstName: optional(id.FirstName),
		LastName:  optional(id.LastName),
		Email:     optional(id.Email),
		Coins:     float64(s.startingBalance),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Following: []string{},
		Followers: []string{},
		Visits:    []string{},
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		// another request of the same caller may have registered it first
		if existing, getErr := s.users.Get(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, clients.Wrap(err, "failed to register user")
	}
	log.Info().Str("user_id", userID).Int64("coins", s.startingBalance).Msg("Registered new user")
	return created, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// ensureAccount opens the account once, seeded from the user record's coins
func (s *LedgerService) ensureAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.NewUnauthorizedError("sign in to use coins")
	}
	if _, ok := s.opened.Load(userID); ok {
		return nil
	}

	seed := s.startingBalance
	if _, err := s.store.Balance(ctx, userID); err == nil {
		s.opened.Store(userID, struct{}{})
		return nil
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return apperrors.NewInternalError("failed to read balance", err)
	}

	user, err := s.User(ctx, userID)
	if err != nil {
		return err
	}
	if user.Coins > 0 {
		seed = int64(user.Coins)
	}
	if err := s.store.EnsureAccount(ctx, userID, seed); err != nil {
		return apperrors.NewInternalError("failed to open coin account", err)
	}
	s.opened.Store(userID, struct{}{})
	log.Info().Str("user_id", userID).Int64("balance", seed).Msg("Coin account opened")
	return nil
}

func permanentOnLedgerError(err error) error {
	if errors.Is(err, repository.ErrReservationNotFound) || errors.Is(err, repository.ErrReservationSettled) {
		return retry.Permanent(err)
	}
	return err
}

func settleError(err error) error {
	switch {
	case errors.Is(err, repository.ErrReservationNotFound):
		return &apperrors.AppError{Type: apperrors.ErrorTypeNotFound, Message: "reservation not found", Err: err}
	case errors.Is(err, repository.ErrReservationSettled):
		return &apperrors.AppError{Type: apperrors.ErrorTypeConflict, Message: "reservation already settled", Err: err}
	default:
		return apperrors.NewInternalError("failed to settle reservation", err)
	}
}

func logRetry(action, id string) func(int, error, time.Duration) {
	return func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Str("reservation_id", id).Int("attempt", attempt).Dur("next", next).Msgf("Retrying %s", action)
	}
}
