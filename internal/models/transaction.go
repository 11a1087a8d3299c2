package models

import (
	"time"

	"github.com/google/uuid"
)

// Local transaction statuses
// 'pending' is the only non-terminal status, the other four are terminal and
// must never be overwritten
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusDeclined  = "declined"
	StatusCanceled  = "canceled"
)

// Processing types: manual deposits return a hosted payment page URL,
// automatic deposits are settled synchronously right after creation
const (
	ProcessingManual    = "manual"
	ProcessingAutomatic = "automatic"
)

const TypeDeposit = "deposit"

type Transaction struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uuid.UUID

	// Id assigned by the payment processor, empty until the remote
	// transaction exists. Once set it never changes.
	ExternalID string

	Type     string
	Amount   int64 // smallest currency unit
	Currency string
	Status   string

	Description string

	// Customer data captured at creation time, immutable afterwards
	Customer Customer

	PaymentURL        string
	ProcessingMessage string
	ProcessingType    string
}

// IsFinal reports whether the transaction reached a terminal status
func (t Transaction) IsFinal() bool {
	return IsFinalStatus(t.Status)
}

func IsFinalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusDeclined, StatusCanceled:
		return true
	default:
		return false
	}
}

// KnownStatus reports whether the value is one of the local statuses.
// Useful to validate status filters that come from query strings.
func KnownStatus(status string) bool {
	return status == StatusPending || IsFinalStatus(status)
}
