package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodhub-gateway/internal/models"

	"github.com/google/uuid"
)

// MemoryLedger is a single-process ledger used when no database is configured
type MemoryLedger struct {
	mu           sync.Mutex
	balances     map[string]int64
	reservations map[string]*models.Reservation
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:     map[string]int64{},
		reservations: map[string]*models.Reservation{},
	}
}

func (m *MemoryLedger) EnsureAccount(ctx context.Context, userID string, seed int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = seed
	}
	return nil
}

func (m *MemoryLedger) Balance(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (m *MemoryLedger) Reserve(ctx context.Context, userID string, amount int64, operation string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok || balance < amount {
		return nil, ErrInsufficientFunds
	}
	m.balances[userID] = balance - amount

	res := &models.Reservation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Operation: operation,
		Status:    models.ReservationReserved,
		CreatedAt: time.Now().UTC(),
	}
	m.reservations[res.ID] = res
	out := *res
	return &out, nil
}

func (m *MemoryLedger) Commit(ctx context.Context, id string) (*models.Reservation, error) {
	return m.settle(id, models.ReservationCommitted)
}

func (m *MemoryLedger) Release(ctx context.Context, id string) (*models.Reservation, error) {
	return m.settle(id, models.ReservationReleased)
}

func (m *MemoryLedger) settle(id string, to models.ReservationStatus) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	switch res.Status {
	case to:
		out := *res
		return &out, nil
	case models.ReservationReserved:
	default:
		out := *res
		return &out, ErrReservationSettled
	}

	now := time.Now().UTC()
	res.Status = to
	res.SettledAt = &now
	if to == models.ReservationReleased {
		m.balances[res.UserID] += res.Amount
	}
	out := *res
	return &out, nil
}

func (m *MemoryLedger) ExpiredReservations(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*models.Reservation
	for _, res := range m.reservations {
		if res.Status == models.ReservationReserved && res.CreatedAt.Before(cutoff) {
			open = append(open, res)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })

	ids := make([]string, 0, len(open))
	for _, res := range open {
		ids = append(ids, res.ID)
	}
	return ids, nil
}
