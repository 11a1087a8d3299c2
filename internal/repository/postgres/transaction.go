package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
)

const defaultListLimit = 10

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, params repository.CreateTransactionParams) (models.Transaction, error) {
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createTransaction,
		uuid.New(),
		now,
		now,
		params.UserID,
		nullIfEmpty(params.ExternalID),
		models.TypeDeposit,
		params.Amount,
		params.Currency,
		models.StatusPending,
		params.Description,
		params.Customer,
		params.PaymentURL,
		params.ProcessingType,
	)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
			return t, fmt.Errorf("external id %q taken: %w", params.ExternalID, apperrors.ErrDataIntegrity)
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
			return t, apperrors.ErrUserNotFound
		default:
			return t, fmt.Errorf("db error: %w", err)
		}
	}

	return t, nil
}

const getTransactionByID = `-- name: GetTransactionByID
SELECT id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByID, id)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const getTransactionByExternalID = `-- name: GetTransactionByExternalID
SELECT id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
FROM transactions
WHERE external_id = $1
ORDER BY created_at
LIMIT 2
`

func (r *TransactionRepo) GetByExternalID(ctx context.Context, externalID string) (models.Transaction, error) {
	var t models.Transaction

	if externalID == "" {
		return t, apperrors.ErrTransactionNotFound
	}

	rows, _ := r.DB.Query(ctx, getTransactionByExternalID, externalID)
	ts, err := pgx.CollectRows(rows, rowToTransaction)

	switch {
	case err != nil:
		return t, fmt.Errorf("db error: %w", err)
	case len(ts) == 0:
		return t, apperrors.ErrTransactionNotFound
	case len(ts) > 1:
		// The unique index should make this impossible, the first row by
		// creation time wins deterministically if it happens anyway
		return ts[0], fmt.Errorf("external id %q matches %d transactions: %w", externalID, len(ts), apperrors.ErrDataIntegrity)
	default:
		return ts[0], nil
	}
}

const setExternalID = `-- name: SetTransactionExternalID
UPDATE transactions
SET external_id = $2,
    payment_url = CASE WHEN $3 = '' THEN payment_url ELSE $3 END,
    updated_at = $4
WHERE id = $1 AND (external_id IS NULL OR external_id = $2)
RETURNING id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
`

func (r *TransactionRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string, paymentURL string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, setExternalID, id, externalID, paymentURL, time.Now())
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err == nil {
		return t, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return t, fmt.Errorf("external id %q taken: %w", externalID, apperrors.ErrDataIntegrity)
		}
		return t, fmt.Errorf("db error: %w", err)
	}

	// Either the transaction does not exist or its external id is set
	// already and differs from the requested one
	t, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return t, getErr
	}

	return t, fmt.Errorf("external id already set to %q: %w", t.ExternalID, apperrors.ErrDataIntegrity)
}

const finalizeTransaction = `-- name: FinalizeTransaction
UPDATE transactions
SET status = $2, processing_message = $3, updated_at = $4
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
`

// Finalize is the compare-and-set the reconciliation primitive relies on:
// the row is updated only while it is still pending, so concurrent attempts
// to finalize the same transaction cannot both win
func (r *TransactionRepo) Finalize(ctx context.Context, id uuid.UUID, status string, message string) (models.Transaction, error) {
	var t models.Transaction

	if !models.IsFinalStatus(status) {
		return t, fmt.Errorf("status %q is not terminal", status)
	}

	rows, _ := r.DB.Query(ctx, finalizeTransaction, id, status, message, time.Now())
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err == nil {
		return t, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return t, fmt.Errorf("db error: %w", err)
	}

	// No pending row matched: the transaction is already terminal or absent
	t, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return t, getErr
	}

	return t, apperrors.ErrTransactionFinal
}

const setTransactionMessage = `-- name: SetTransactionMessage
UPDATE transactions
SET processing_message = $2, updated_at = $3
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
`

func (r *TransactionRepo) SetMessage(ctx context.Context, id uuid.UUID, message string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, setTransactionMessage, id, message, time.Now())
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err == nil {
		return t, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return t, fmt.Errorf("db error: %w", err)
	}

	t, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return t, getErr
	}

	return t, apperrors.ErrTransactionFinal
}

const listTransactions = `-- name: ListTransactions
SELECT id, created_at, updated_at, user_id, external_id, type, amount, currency, status, description, customer, payment_url, processing_message, processing_type
FROM transactions
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3
`

func (r *TransactionRepo) List(ctx context.Context, opts repository.ListOpts) ([]models.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, _ := r.DB.Query(ctx, listTransactions, opts.UserID, opts.Status, limit)
	ts, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ts, nil
}

const statsByUser = `-- name: TransactionStatsByUser
SELECT
    count(*),
    count(*) FILTER (WHERE status = 'completed'),
    count(*) FILTER (WHERE status = 'pending'),
    count(*) FILTER (WHERE status = 'failed'),
    COALESCE(sum(amount) FILTER (WHERE status = 'completed' AND type = 'deposit'), 0),
    COALESCE(round(avg(amount)), 0)
FROM transactions
WHERE user_id = $1
`

func (r *TransactionRepo) StatsByUser(ctx context.Context, userID uuid.UUID) (repository.TransactionStats, error) {
	var stats repository.TransactionStats

	err := r.DB.QueryRow(ctx, statsByUser, userID).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Pending,
		&stats.Failed,
		&stats.TotalDeposited,
		&stats.AverageAmount,
	)
	if err != nil {
		return stats, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	var externalID *string

	err := row.Scan(
		&t.ID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.UserID,
		&externalID,
		&t.Type,
		&t.Amount,
		&t.Currency,
		&t.Status,
		&t.Description,
		&t.Customer,
		&t.PaymentURL,
		&t.ProcessingMessage,
		&t.ProcessingType,
	)

	if externalID != nil {
		t.ExternalID = *externalID
	}

	return t, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
