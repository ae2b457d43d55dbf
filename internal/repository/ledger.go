package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodhub-gateway/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient coin balance")
	ErrAccountNotFound     = errors.New("coin account not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationSettled  = errors.New("reservation already settled the other way")
)

// LedgerRepository keeps coin balances and reservations in Postgres
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// EnsureAccount opens an account with seed coins unless one exists
func (r *LedgerRepository) EnsureAccount(ctx context.Context, userID string, seed int64) error {
	query := `
		INSERT INTO coin_accounts (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, seed); err != nil {
		return fmt.Errorf("failed to ensure coin account: %w", err)
	}
	return nil
}

// Balance returns the current balance
func (r *LedgerRepository) Balance(ctx context.Context, userID string) (int64, error) {
	query := `SELECT balance FROM coin_accounts WHERE user_id = $1`
	var balance int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Reserve debits amount and records a reservation in one transaction.
// The conditional update never lets the balance go negative.
func (r *LedgerRepository) Reserve(ctx context.Context, userID string, amount int64, operation string) (*models.Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	debit := `
		UPDATE coin_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`
	var balance int64
	if err := tx.QueryRow(ctx, debit, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	res := &models.Reservation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Operation: operation,
		Status:    models.ReservationReserved,
		CreatedAt: time.Now().UTC(),
	}
	insert := `
		INSERT INTO coin_reservations (id, user_id, amount, operation, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, insert, res.ID, res.UserID, res.Amount, res.Operation, res.Status, res.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return res, nil
}

// Commit marks a reservation as spent. Committing twice is a no-op.
func (r *LedgerRepository) Commit(ctx context.Context, id string) (*models.Reservation, error) {
	return r.settle(ctx, id, models.ReservationCommitted)
}

// Release returns the reserved coins to the balance. Releasing twice is a no-op.
func (r *LedgerRepository) Release(ctx context.Context, id string) (*models.Reservation, error) {
	return r.settle(ctx, id, models.ReservationReleased)
}

func (r *LedgerRepository) settle(ctx context.Context, id string, to models.ReservationStatus) (*models.Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, user_id, amount, operation, status, created_at, settled_at
		FROM coin_reservations
		WHERE id = $1
		FOR UPDATE
	`
	var res models.Reservation
	err = tx.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.UserID, &res.Amount, &res.Operation, &res.Status, &res.CreatedAt, &res.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	switch res.Status {
	case to:
		return &res, nil
	case models.ReservationReserved:
	default:
		return &res, ErrReservationSettled
	}

	now := time.Now().UTC()
	update := `UPDATE coin_reservations SET status = $2, settled_at = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, update, id, to, now); err != nil {
		return nil, fmt.Errorf("failed to settle reservation: %w", err)
	}
	if to == models.ReservationReleased {
		refund := `UPDATE coin_accounts SET balance = balance + $2, updated_at = NOW() WHERE user_id = $1`
		if _, err := tx.Exec(ctx, refund, res.UserID, res.Amount); err != nil {
			return nil, fmt.Errorf("failed to refund reservation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	res.Status = to
	res.SettledAt = &now
	return &res, nil
}

// ExpiredReservations lists reservations still open since before cutoff
func (r *LedgerRepository) ExpiredReservations(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT id FROM coin_reservations
		WHERE status = 'reserved' AND created_at < $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
