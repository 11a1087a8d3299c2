package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/handlers/render"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/service/deposit"
)

type depositRequest struct {
	Amount      int64           `json:"amount"`
	Customer    customerPayload `json:"customer"`
	Description string          `json:"description"`
	UserID      string          `json:"userId"`
}

type customerPayload struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
}

type depositResponse struct {
	TransactionID string `json:"transactionId"`
	ExternalID    string `json:"externalId,omitempty"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentURL    string `json:"paymentUrl,omitempty"`
	Message       string `json:"processingMessage,omitempty"`
	NewBalance    *int64 `json:"newBalance,omitempty"`
}

func toDepositResponse(t models.Transaction) depositResponse {
	return depositResponse{
		TransactionID: t.ID.String(),
		ExternalID:    t.ExternalID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        t.Status,
		PaymentURL:    t.PaymentURL,
		Message:       t.ProcessingMessage,
	}
}

func toCreateRequest(req depositRequest) deposit.CreateDepositRequest {
	// An unparseable user id becomes uuid.Nil and is reported by the
	// service together with the other violations
	userID, _ := uuid.Parse(req.UserID)

	return deposit.CreateDepositRequest{
		UserID: userID,
		Amount: req.Amount,
		Customer: models.Customer{
			Firstname:   req.Customer.Firstname,
			Lastname:    req.Customer.Lastname,
			Email:       req.Customer.Email,
			PhoneNumber: req.Customer.PhoneNumber,
			Country:     req.Customer.Country,
		},
		Description: req.Description,
	}
}

func handleCreateDeposit(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[depositRequest](w, r)
		if err != nil {
			return
		}

		t, err := depositService.CreateDeposit(r.Context(), toCreateRequest(req))
		if err != nil {
			renderDepositError(w, err, l)
			return
		}

		render.Success(w, toDepositResponse(t), "Transaction créée avec succès")
	})
}

func handleCreateAutomaticDeposit(depositService depositService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[depositRequest](w, r)
		if err != nil {
			return
		}

		t, err := depositService.CreateAutomaticDeposit(r.Context(), toCreateRequest(req))
		if err != nil {
			renderDepositError(w, err, l)
			return
		}

		res := toDepositResponse(t)

		switch t.Status {
		case models.StatusCompleted:
			if balance, err := depositService.UserBalance(r.Context(), t.UserID); err == nil {
				res.NewBalance = &balance
			} else {
				l.Error("Failed to get balance after deposit", "error", err, "user_id", t.UserID)
			}
			render.Success(w, res, "Dépôt traité avec succès")

		case models.StatusPending:
			render.Success(w, res, "Paiement en cours de traitement. Veuillez réessayer plus tard")

		default:
			message := t.ProcessingMessage
			if message == "" {
				message = "Échec du traitement du paiement"
			}
			render.JSONWithStatus(w, render.Response{Success: false, Data: res, Message: message}, http.StatusBadRequest)
		}
	})
}

// renderDepositError maps the error taxonomy to HTTP codes. Validation and
// not-found errors surface verbatim, processor trouble becomes a generic
// retryable message.
func renderDepositError(w http.ResponseWriter, err error, l logger.Logger) {
	var validationErr *apperrors.ValidationError
	var procErr *apperrors.ProcessorError

	switch {
	case errors.As(err, &validationErr):
		render.Violations(w, validationErr.Violations)

	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "Utilisateur non trouvé", http.StatusNotFound)

	case errors.As(err, &procErr):
		l.Warn("Processor rejected deposit", "error", err)
		render.ServiceError(w, "La demande a été rejetée par le processeur de paiement", http.StatusBadRequest)

	case errors.Is(err, apperrors.ErrProcessorUnavailable):
		l.Warn("Processor unavailable", "error", err)
		render.ServiceError(w, "Problème de connexion. Veuillez réessayer", http.StatusServiceUnavailable)

	default:
		l.Error("Failed to create deposit", "error", err)
		render.ServiceError(w, "Erreur lors du traitement du dépôt", http.StatusInternalServerError)
	}
}
