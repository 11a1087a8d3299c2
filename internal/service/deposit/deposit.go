package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
	"github.com/rufusakande/xpaie-client-backend/internal/service/customer"
	"github.com/rufusakande/xpaie-client-backend/internal/service/fedapay"
)

const (
	defaultMinAmount = 100
	defaultCurrency  = "XOF"

	// Budget for the synchronous settlement poll of automatic deposits
	defaultPollAttempts = 5
	defaultPollInterval = 2 * time.Second
)

// processorClient is the contract the orchestrator needs from the payment
// processor, satisfied by fedapay.Client
type processorClient interface {
	CreateTransaction(ctx context.Context, params fedapay.CreateTransactionParams) (fedapay.RemoteTransaction, error)
	GenerateToken(ctx context.Context, remoteID string) (fedapay.PaymentToken, error)
	GetTransactionStatus(ctx context.Context, remoteID string) (fedapay.RemoteTransaction, error)
}

type Config struct {
	// Minimum accepted amount in smallest currency unit
	MinAmount int64

	// The only currency this service operates in
	Currency string

	// URL the processor redirects the customer back to
	CallbackURL string

	// Synchronous settlement poll budget for automatic deposits
	PollAttempts int
	PollInterval time.Duration
}

type Service struct {
	minAmount    int64
	currency     string
	callbackURL  string
	pollAttempts int
	pollInterval time.Duration

	storage   repository.Storage
	processor processorClient
	logger    logger.Logger
}

func NewService(c Config, storage repository.Storage, processor processorClient, l logger.Logger) *Service {
	if c.MinAmount <= 0 {
		c.MinAmount = defaultMinAmount
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = defaultPollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}

	return &Service{
		minAmount:    c.MinAmount,
		currency:     c.Currency,
		callbackURL:  c.CallbackURL,
		pollAttempts: c.PollAttempts,
		pollInterval: c.PollInterval,
		storage:      storage,
		processor:    processor,
		logger:       l,
	}
}

type CreateDepositRequest struct {
	UserID      uuid.UUID
	Amount      int64
	Customer    models.Customer
	Description string
}

// validate collects every violation, not only the first one
func (s *Service) validate(req CreateDepositRequest) error {
	var violations []string

	if req.Amount < s.minAmount {
		violations = append(violations, fmt.Sprintf("le montant minimum est de %d %s", s.minAmount, s.currency))
	}
	if req.Customer.PhoneNumber == "" {
		violations = append(violations, "numéro de téléphone requis")
	}
	if req.UserID == uuid.Nil {
		violations = append(violations, "ID utilisateur requis")
	}

	if len(violations) > 0 {
		return &apperrors.ValidationError{Violations: violations}
	}

	return nil
}

// prepare runs the shared head of both deposit flows: validation, user
// resolution, customer snapshot and the local pending transaction
func (s *Service) prepare(ctx context.Context, req CreateDepositRequest, processingType string, descriptionPrefix string) (models.Transaction, models.Customer, error) {
	var t models.Transaction

	if err := s.validate(req); err != nil {
		return t, models.Customer{}, err
	}

	user, err := s.storage.User().GetUserByID(ctx, req.UserID)
	if err != nil {
		return t, models.Customer{}, err
	}

	snapshot := customer.Resolve(req.Customer, user)

	description := req.Description
	if description == "" {
		description = descriptionPrefix + " - " + user.Name
	}

	t, err = s.storage.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
		UserID:         user.ID,
		Amount:         req.Amount,
		Currency:       s.currency,
		Description:    description,
		Customer:       snapshot,
		ProcessingType: processingType,
	})
	if err != nil {
		return t, snapshot, fmt.Errorf("can't create transaction: %w", err)
	}

	return t, snapshot, nil
}

// CreateDeposit drives the manual flow: create the remote transaction,
// obtain the hosted payment page url and leave the local transaction
// pending until a callback or webhook settles it
func (s *Service) CreateDeposit(ctx context.Context, req CreateDepositRequest) (models.Transaction, error) {
	t, snapshot, err := s.prepare(ctx, req, models.ProcessingManual, "Dépôt")
	if err != nil {
		return t, err
	}

	remote, err := s.processor.CreateTransaction(ctx, fedapay.CreateTransactionParams{
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		CallbackURL: s.callbackURL,
		Customer:    snapshot,
	})
	if err != nil {
		s.noteProcessorFailure(ctx, t.ID, err)
		return t, err
	}

	token, err := s.processor.GenerateToken(ctx, remote.ID)
	if err != nil {
		// Remember the remote id even without a payment url so the
		// webhook can still settle the transaction later
		if linked, linkErr := s.storage.Transaction().SetExternalID(ctx, t.ID, remote.ID, ""); linkErr == nil {
			t = linked
		}
		s.noteProcessorFailure(ctx, t.ID, err)
		return t, err
	}

	t, err = s.storage.Transaction().SetExternalID(ctx, t.ID, remote.ID, token.URL)
	if err != nil {
		return t, fmt.Errorf("can't link transaction %s to external id %s: %w", t.ID, remote.ID, err)
	}

	s.logger.Info("Deposit created", "transaction_id", t.ID, "external_id", t.ExternalID, "user_id", t.UserID, "amount", t.Amount)
	return t, nil
}

// CreateAutomaticDeposit drives the automatic flow: after the remote
// transaction is created the service polls the processor for a settlement
// outcome within a bounded budget. A transaction that does not settle in
// time stays pending and is reported retryable, never failed.
func (s *Service) CreateAutomaticDeposit(ctx context.Context, req CreateDepositRequest) (models.Transaction, error) {
	t, snapshot, err := s.prepare(ctx, req, models.ProcessingAutomatic, "Dépôt automatique")
	if err != nil {
		return t, err
	}

	remote, err := s.processor.CreateTransaction(ctx, fedapay.CreateTransactionParams{
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		CallbackURL: s.callbackURL,
		Customer:    snapshot,
	})
	if err != nil {
		s.noteProcessorFailure(ctx, t.ID, err)
		return t, err
	}

	t, err = s.storage.Transaction().SetExternalID(ctx, t.ID, remote.ID, "")
	if err != nil {
		return t, fmt.Errorf("can't link transaction %s to external id %s: %w", t.ID, remote.ID, err)
	}

	return s.settleSync(ctx, t, remote)
}

// settleSync polls the remote status until it maps to a terminal local
// status or the poll budget is exhausted. Settlement goes through the same
// Reconcile primitive as the callback and webhook paths, so the at most
// once credit guarantee holds here as well.
func (s *Service) settleSync(ctx context.Context, t models.Transaction, remote fedapay.RemoteTransaction) (models.Transaction, error) {
	observed := remote

	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		if _, ok := mapRemoteStatus(observed.Status); ok {
			return s.Reconcile(ctx, t.ExternalID, observed.Status, "")
		}

		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		refreshed, err := s.processor.GetTransactionStatus(ctx, t.ExternalID)
		if err != nil {
			// Transient processor trouble leaves the deposit pending,
			// the webhook will settle it eventually
			s.logger.Warn("Settlement poll failed", "error", err, "transaction_id", t.ID, "attempt", attempt)
			continue
		}
		observed = refreshed
	}

	s.logger.Info("Deposit not settled within poll budget, left pending", "transaction_id", t.ID, "external_id", t.ExternalID)
	return s.storage.Transaction().SetMessage(ctx, t.ID, "Paiement en cours de traitement")
}

// noteProcessorFailure records a human readable message on a transaction
// that stays pending because of a processor error. Best effort: the
// original error is what gets reported, not a bookkeeping failure.
func (s *Service) noteProcessorFailure(ctx context.Context, id uuid.UUID, err error) {
	msg := "Problème de connexion au processeur de paiement. Veuillez réessayer"
	var procErr *apperrors.ProcessorError
	if errors.As(err, &procErr) {
		msg = "Le processeur a rejeté la demande: " + procErr.Message
	}

	if _, setErr := s.storage.Transaction().SetMessage(ctx, id, msg); setErr != nil {
		s.logger.Error("Failed to record processor failure", "error", setErr, "transaction_id", id)
	}
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return s.storage.Transaction().GetByID(ctx, id)
}

func (s *Service) ListUserTransactions(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error) {
	if status != "" && !models.KnownStatus(status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("statut inconnu: %s", status))
	}

	return s.storage.Transaction().List(ctx, repository.ListOpts{
		UserID: userID,
		Status: status,
		Limit:  limit,
	})
}

func (s *Service) UserTransactionStats(ctx context.Context, userID uuid.UUID) (repository.TransactionStats, error) {
	return s.storage.Transaction().StatsByUser(ctx, userID)
}

func (s *Service) UserBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	return user.Balance, nil
}
