package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
	"github.com/rufusakande/xpaie-client-backend/internal/testutil"
)

func TestUsers(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("CreateUser", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)

			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
				Name:        "Jean Agbodjan",
				Email:       "jean@example.com",
				Country:     "BJ",
				PhoneNumber: "+22997808080",
			})

			require.NoError(t, err, "creating user should not fail")
			require.NotZero(t, user.ID)
			require.Equal(t, "Jean Agbodjan", user.Name)
			require.Equal(t, "jean@example.com", user.Email)
			require.Equal(t, "BJ", user.Country)
			require.Equal(t, "+22997808080", user.PhoneNumber)
			require.Zero(t, user.Balance, "new users start with a zero balance")
			require.WithinDuration(t, time.Now(), user.CreatedAt, time.Second)
		})
	})

	t.Run("GetUserByID", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)
			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Jean"})
			require.NoError(t, err)

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, user.ID, got.ID)

			_, err = storage.User().GetUserByID(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("Credit", func(t *testing.T) {
		t.Run("credit ok", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				storage := NewStorage(tx)
				user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Jean"})
				require.NoError(t, err)

				balance, err := storage.User().Credit(t.Context(), user.ID, 5000)
				require.NoError(t, err)
				require.Equal(t, int64(5000), balance)

				balance, err = storage.User().Credit(t.Context(), user.ID, 2500)
				require.NoError(t, err)
				require.Equal(t, int64(7500), balance, "credits should accumulate")

				got, err := storage.User().GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Equal(t, int64(7500), got.Balance, "stored balance should match the returned one")
			})
		})

		t.Run("non positive amount refused", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				storage := NewStorage(tx)
				user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Jean"})
				require.NoError(t, err)

				_, err = storage.User().Credit(t.Context(), user.ID, 0)
				require.Error(t, err, "zero credit makes no sense")

				_, err = storage.User().Credit(t.Context(), user.ID, -100)
				require.Error(t, err, "negative credit makes no sense")
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				storage := NewStorage(tx)

				_, err := storage.User().Credit(t.Context(), uuid.New(), 100)
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		// Runs on the pool directly, each credit needs its own connection
		// and committed visibility
		t.Run("concurrent credits all land", func(t *testing.T) {
			storage := NewStorage(pg.Pool)
			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Jean"})
			require.NoError(t, err)

			const workers = 10
			const amount = int64(100)

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := storage.User().Credit(t.Context(), user.ID, amount)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err, "every concurrent credit should succeed")
			}

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, workers*amount, got.Balance, "no credit may be lost under concurrency")
		})
	})
}
