package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string
	Email       string
	Country     string
	PhoneNumber string

	// Balance in smallest currency unit, mutated only by UserRepo.Credit
	Balance int64
}
