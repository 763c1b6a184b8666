package model

import (
	"fmt"
	"time"
)

type EscrowStatus string

const (
	StatusPending   EscrowStatus = "pending"
	StatusAccepted  EscrowStatus = "accepted"
	StatusRejected  EscrowStatus = "rejected"
	StatusCancelled EscrowStatus = "cancelled"
	StatusCompleted EscrowStatus = "completed"
)

// ParseEscrowStatus validates a status string from a query parameter.
func ParseEscrowStatus(s string) (EscrowStatus, error) {
	switch EscrowStatus(s) {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return EscrowStatus(s), nil
	}
	return "", fmt.Errorf("unknown escrow status %q", s)
}

// IsTerminal reports whether no further transition may leave this status.
// Only pending and accepted escrows can still move: pending to any of the
// four outcomes, accepted to completed.
func (s EscrowStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

type Escrow struct {
	ID          string       `json:"id"`
	BuyerID     string       `json:"buyer_id"`
	SellerEmail string       `json:"seller_email"`
	Amount      string       `json:"amount"` // decimal string, NUMERIC(12,2) at rest
	Description *string      `json:"description,omitempty"`
	Status      EscrowStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}
