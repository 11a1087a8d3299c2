package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user with provided profile data
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Credit increments the user balance atomically and returns the new
	// balance. Concurrent credits for the same user must both land.
	// If user not found must return apperrors.ErrUserNotFound
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (newBalance int64, err error)
}

// Transaction repository interface
type TransactionRepo interface {
	// Create transaction in 'pending' status, assigns id and timestamps
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (models.Transaction, error)

	// Get transaction by local id
	// If not found must return apperrors.ErrTransactionNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// Get transaction by the processor assigned id
	// If not found must return apperrors.ErrTransactionNotFound
	// If several transactions map to the same external id the first one
	// (by creation time) is returned wrapped with apperrors.ErrDataIntegrity
	GetByExternalID(ctx context.Context, externalID string) (models.Transaction, error)

	// Set processor assigned id and optional payment page url
	// External id once set never changes
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string, paymentURL string) (models.Transaction, error)

	// Finalize moves a pending transaction to the given terminal status.
	// The update is conditional on the current status still being
	// 'pending': if the transaction is already terminal it is returned
	// unchanged with apperrors.ErrTransactionFinal.
	Finalize(ctx context.Context, id uuid.UUID, status string, message string) (models.Transaction, error)

	// SetMessage updates the processing message of a still pending
	// transaction without touching its status
	SetMessage(ctx context.Context, id uuid.UUID, message string) (models.Transaction, error)

	// List user transactions, newest first
	List(ctx context.Context, opts ListOpts) ([]models.Transaction, error)

	// StatsByUser aggregates transaction counters for a user
	StatsByUser(ctx context.Context, userID uuid.UUID) (TransactionStats, error)
}

// Storage aggregates repositories and composes them in one db transaction
type Storage interface {
	User() UserRepo
	Transaction() TransactionRepo

	// InTx runs fn with a storage bound to a single db transaction.
	// Commits when fn returns nil, rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Name        string
	Email       string
	Country     string
	PhoneNumber string
}

type CreateTransactionParams struct {
	UserID         uuid.UUID
	ExternalID     string
	Amount         int64
	Currency       string
	Description    string
	Customer       models.Customer
	PaymentURL     string
	ProcessingType string
}

type TransactionStats struct {
	Total     int64
	Completed int64
	Pending   int64
	Failed    int64

	// Sum of completed deposit amounts
	TotalDeposited int64

	// Mean amount over all transactions, zero when there are none
	AverageAmount int64
}

type ListOpts struct {
	UserID uuid.UUID

	// Optional status filter, empty means all statuses
	Status string

	// Maximum number of rows, zero means the repository default
	Limit int
}
