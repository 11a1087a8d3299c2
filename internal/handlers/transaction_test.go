package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
)

func TestGetTransaction(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		tr := testTransaction()
		svc := &serviceStub{
			t: t,
			getTransaction: func(id uuid.UUID) (models.Transaction, error) {
				require.Equal(t, tr.ID, id)
				return tr, nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/"+tr.ID.String(), nil))

		require.Equal(t, http.StatusOK, res.StatusCode)

		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var got transactionResponse
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, tr.ID.String(), got.ID)
		require.Equal(t, tr.Amount, got.Amount)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &serviceStub{
			t: t,
			getTransaction: func(id uuid.UUID) (models.Transaction, error) {
				return models.Transaction{}, apperrors.ErrTransactionNotFound
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/"+uuid.NewString(), nil))

		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/not-a-uuid", nil))

		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestListUserTransactions(t *testing.T) {
	userID := uuid.New()

	t.Run("list with filters", func(t *testing.T) {
		var gotStatus string
		var gotLimit int
		svc := &serviceStub{
			t: t,
			listUserTransactions: func(id uuid.UUID, status string, limit int) ([]models.Transaction, error) {
				require.Equal(t, userID, id)
				gotStatus, gotLimit = status, limit
				return []models.Transaction{testTransaction(), testTransaction()}, nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, httptest.NewRequest(http.MethodGet,
			"/api/deposits/user/"+userID.String()+"?status=completed&limit=5", nil))

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "completed", gotStatus)
		require.Equal(t, 5, gotLimit)
		require.NotNil(t, envelope.Count)
		require.Equal(t, 2, *envelope.Count)
	})

	t.Run("empty list keeps count", func(t *testing.T) {
		svc := &serviceStub{
			t: t,
			listUserTransactions: func(id uuid.UUID, status string, limit int) ([]models.Transaction, error) {
				return nil, nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/user/"+userID.String(), nil))

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.NotNil(t, envelope.Count)
		require.Zero(t, *envelope.Count)
	})

	t.Run("invalid limit", func(t *testing.T) {
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/user/"+userID.String()+"?limit=lots", nil))

		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		svc := &serviceStub{
			t: t,
			listUserTransactions: func(id uuid.UUID, status string, limit int) ([]models.Transaction, error) {
				return nil, apperrors.NewValidationError("statut inconnu: exploded")
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/user/"+userID.String()+"?status=exploded", nil))

		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.Contains(t, envelope.Errors, "statut inconnu: exploded")
	})
}

func TestUserTransactionStats(t *testing.T) {
	userID := uuid.New()

	t.Run("stats ok", func(t *testing.T) {
		svc := &serviceStub{
			t: t,
			userTransactionStats: func(id uuid.UUID) (repository.TransactionStats, error) {
				require.Equal(t, userID, id)
				return repository.TransactionStats{
					Total:          4,
					Completed:      2,
					Pending:        1,
					Failed:         1,
					TotalDeposited: 10000,
					AverageAmount:  5000,
				}, nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/user/"+userID.String()+"/stats", nil))

		require.Equal(t, http.StatusOK, res.StatusCode)

		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var got map[string]int64
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, int64(4), got["totalTransactions"])
		require.Equal(t, int64(10000), got["totalDeposited"])
		require.Equal(t, int64(5000), got["averageAmount"])
	})

	t.Run("bad user id", func(t *testing.T) {
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/api/deposits/user/nope/stats", nil))

		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}
