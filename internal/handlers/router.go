package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rufusakande/xpaie-client-backend/internal/handlers/middleware"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
	"github.com/rufusakande/xpaie-client-backend/internal/service/deposit"
	"github.com/rufusakande/xpaie-client-backend/internal/service/fedapay"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Everything handlers need from the deposit orchestrator
type depositService interface {
	CreateDeposit(ctx context.Context, req deposit.CreateDepositRequest) (models.Transaction, error)
	CreateAutomaticDeposit(ctx context.Context, req deposit.CreateDepositRequest) (models.Transaction, error)

	// Reconcile settles a transaction looked up by the processor id, the
	// shared idempotent primitive of the callback and webhook handlers
	Reconcile(ctx context.Context, externalID string, remoteStatus string, message string) (models.Transaction, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error)
	UserTransactionStats(ctx context.Context, userID uuid.UUID) (repository.TransactionStats, error)
	UserBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// The callback handler confirms the redirect carried status with the
// processor before trusting it
type processorStatusFetcher interface {
	GetTransactionStatus(ctx context.Context, remoteID string) (fedapay.RemoteTransaction, error)
}

type RouterConfig struct {
	// Shared secret for webhook signatures. Empty means every webhook is
	// rejected (fail closed).
	WebhookSecret string

	// Frontend base url the payment callback redirects to
	ClientURL string
}

func NewRouter(
	c RouterConfig,
	depositService depositService,
	processor processorStatusFetcher,
	logger logger.Logger,
) http.Handler {
	deposits := http.NewServeMux()
	deposits.Handle("POST /create", handleCreateDeposit(depositService, logger))
	deposits.Handle("POST /create/automatic", handleCreateAutomaticDeposit(depositService, logger))
	deposits.Handle("GET /user/{userID}", handleListUserTransactions(depositService, logger))
	deposits.Handle("GET /user/{userID}/stats", handleUserTransactionStats(depositService, logger))
	deposits.Handle("GET /{transactionID}", handleGetTransaction(depositService, logger))

	payments := http.NewServeMux()
	payments.Handle("GET /callback", handleCallback(depositService, processor, c.ClientURL, logger))
	payments.Handle("POST /webhook", handleWebhook(depositService, c.WebhookSecret, logger))

	root := http.NewServeMux()
	root.Handle("/api/deposits/", http.StripPrefix("/api/deposits", deposits))
	root.Handle("/payments/", http.StripPrefix("/payments", payments))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}
