package models

import "time"

// ReservationStatus is the lifecycle state of a coin reservation
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation holds coins taken from a balance until the paid operation settles
type Reservation struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Amount    int64             `json:"amount"`
	Operation string            `json:"operation"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	SettledAt *time.Time        `json:"settledAt,omitempty"`
}

// CoinBalance is the ledger view returned to clients
type CoinBalance struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}
