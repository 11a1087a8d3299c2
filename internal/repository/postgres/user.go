package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, created_at, updated_at, name, email, country, phone_number, balance)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
RETURNING id, created_at, updated_at, name, email, country, phone_number, balance
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), now, now, params.Name, params.Email, params.Country, params.PhoneNumber)
	user, err := pgx.CollectOneRow(rows, rowToUser)
	if err != nil {
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, updated_at, name, email, country, phone_number, balance
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const creditUser = `-- name: CreditUser
UPDATE users
SET balance = balance + $2, updated_at = $3
WHERE id = $1
RETURNING balance
`

// Credit is a single-statement increment, concurrent credits for the same
// user serialize on the row lock and no update is lost
func (r *UserRepo) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var balance int64
	err := r.DB.QueryRow(ctx, creditUser, userID, amount, time.Now()).Scan(&balance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrUserNotFound
	default:
		return 0, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Name, &u.Email, &u.Country, &u.PhoneNumber, &u.Balance)
	return u, err
}
