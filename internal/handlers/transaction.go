package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/handlers/render"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

type transactionResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	ExternalID        string          `json:"externalId,omitempty"`
	Type              string          `json:"type"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	Description       string          `json:"description"`
	Customer          models.Customer `json:"customer"`
	PaymentURL        string          `json:"paymentUrl,omitempty"`
	ProcessingMessage string          `json:"processingMessage,omitempty"`
	ProcessingType    string          `json:"processingType"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID.String(),
		UserID:            t.UserID.String(),
		ExternalID:        t.ExternalID,
		Type:              t.Type,
		Amount:            t.Amount,
		Currency:          t.Currency,
		Status:            t.Status,
		Description:       t.Description,
		Customer:          t.Customer,
		PaymentURL:        t.PaymentURL,
		ProcessingMessage: t.ProcessingMessage,
		ProcessingType:    t.ProcessingType,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func handleGetTransaction(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("transactionID"))
		if err != nil {
			render.ServiceError(w, "ID de transaction requis", http.StatusBadRequest)
			return
		}

		t, err := depositService.GetTransaction(r.Context(), id)

		switch {
		case err == nil:
			render.Success(w, toTransactionResponse(t), "")
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			render.ServiceError(w, "Transaction non trouvée", http.StatusNotFound)
		default:
			l.Error("Failed to get transaction", "error", err, "transaction_id", id)
			render.ServiceError(w, "Erreur lors de la récupération de la transaction", http.StatusInternalServerError)
		}
	})
}

func handleListUserTransactions(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("userID"))
		if err != nil {
			render.ServiceError(w, "ID utilisateur requis", http.StatusBadRequest)
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				render.ServiceError(w, "Limite invalide", http.StatusBadRequest)
				return
			}
		}

		ts, err := depositService.ListUserTransactions(r.Context(), userID, r.URL.Query().Get("status"), limit)

		var validationErr *apperrors.ValidationError

		switch {
		case err == nil:
			res := make([]transactionResponse, 0, len(ts))
			for _, t := range ts {
				res = append(res, toTransactionResponse(t))
			}
			render.SuccessList(w, res, len(res))
		case errors.As(err, &validationErr):
			render.Violations(w, validationErr.Violations)
		default:
			l.Error("Failed to list transactions", "error", err, "user_id", userID)
			render.ServiceError(w, "Erreur lors de la récupération des transactions", http.StatusInternalServerError)
		}
	})
}

func handleUserTransactionStats(depositService depositService, l logger.Logger) http.Handler {
	type response struct {
		TotalTransactions     int64 `json:"totalTransactions"`
		CompletedTransactions int64 `json:"completedTransactions"`
		PendingTransactions   int64 `json:"pendingTransactions"`
		FailedTransactions    int64 `json:"failedTransactions"`
		TotalDeposited        int64 `json:"totalDeposited"`
		AverageAmount         int64 `json:"averageAmount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("userID"))
		if err != nil {
			render.ServiceError(w, "ID utilisateur requis", http.StatusBadRequest)
			return
		}

		stats, err := depositService.UserTransactionStats(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get transaction stats", "error", err, "user_id", userID)
			render.ServiceError(w, "Erreur lors de la récupération des statistiques", http.StatusInternalServerError)
			return
		}

		render.Success(w, response{
			TotalTransactions:     stats.Total,
			CompletedTransactions: stats.Completed,
			PendingTransactions:   stats.Pending,
			FailedTransactions:    stats.Failed,
			TotalDeposited:        stats.TotalDeposited,
			AverageAmount:         stats.AverageAmount,
		}, "")
	})
}
