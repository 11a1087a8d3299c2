package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
	"github.com/rufusakande/xpaie-client-backend/internal/repository"
	"github.com/rufusakande/xpaie-client-backend/internal/service/fedapay"
)

// mapRemoteStatus maps the processor status vocabulary to the local one.
// ok is false for statuses that must not finalize the transaction.
func mapRemoteStatus(remoteStatus string) (local string, ok bool) {
	switch remoteStatus {
	case fedapay.RemoteStatusApproved:
		return models.StatusCompleted, true
	case fedapay.RemoteStatusDeclined:
		return models.StatusDeclined, true
	case fedapay.RemoteStatusCanceled, "cancelled":
		return models.StatusCanceled, true
	case fedapay.RemoteStatusFailed:
		return models.StatusFailed, true
	default:
		return "", false
	}
}

func defaultMessageFor(status string) string {
	switch status {
	case models.StatusCompleted:
		return "Paiement réussi"
	case models.StatusDeclined:
		return "Paiement refusé"
	case models.StatusCanceled:
		return "Paiement annulé"
	case models.StatusFailed:
		return "Paiement échoué"
	default:
		return "Paiement en cours de traitement"
	}
}

// Reconcile is the idempotent transition primitive shared by the three
// settlement entry points: the synchronous poll after creation, the browser
// callback and the processor webhook. They may race each other for the same
// transaction in any order.
//
// Guarantees:
//   - a terminal status is never overwritten, whoever finalizes first wins
//   - the balance is credited exactly once, atomically with the move to
//     'completed' (both inside a single db transaction)
//   - an unknown remote status leaves the transaction pending with an
//     informative message
func (s *Service) Reconcile(ctx context.Context, externalID string, remoteStatus string, message string) (models.Transaction, error) {
	t, err := s.storage.Transaction().GetByExternalID(ctx, externalID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDataIntegrity):
		// Abnormal mapping, the repository picked the first transaction
		// deterministically; settle that one but make noise
		s.logger.Error("Duplicate external id mapping", "external_id", externalID, "transaction_id", t.ID)
	default:
		return t, err
	}

	target, ok := mapRemoteStatus(remoteStatus)
	if !ok {
		if t.IsFinal() {
			return t, nil
		}

		msg := message
		if msg == "" {
			msg = fmt.Sprintf("Statut processeur inattendu: %s", remoteStatus)
		}
		return s.storage.Transaction().SetMessage(ctx, t.ID, msg)
	}

	if message == "" {
		message = defaultMessageFor(target)
	}

	// Already terminal: no status change, no credit, regardless of what
	// the new observation claims
	if t.IsFinal() {
		s.logger.Debug("Reconcile no-op, transaction already final",
			"transaction_id", t.ID, "status", t.Status, "observed", remoteStatus)
		return t, nil
	}

	if target == models.StatusCompleted {
		return s.complete(ctx, t, message)
	}

	t, err = s.storage.Transaction().Finalize(ctx, t.ID, target, message)
	if errors.Is(err, apperrors.ErrTransactionFinal) {
		// Lost the race to another entry point, the stored outcome stands
		return t, nil
	}
	if err != nil {
		return t, err
	}

	s.logger.Info("Transaction finalized", "transaction_id", t.ID, "status", t.Status)
	return t, nil
}

// complete moves a pending transaction to 'completed' and credits the user
// balance as one logical unit. The conditional update inside Finalize makes
// sure only the first completion attempt reaches the credit, a crash
// between the two statements rolls both back.
func (s *Service) complete(ctx context.Context, t models.Transaction, message string) (models.Transaction, error) {
	var finalized models.Transaction

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		var err error
		finalized, err = store.Transaction().Finalize(ctx, t.ID, models.StatusCompleted, message)
		if err != nil {
			return err
		}

		newBalance, err := store.User().Credit(ctx, finalized.UserID, finalized.Amount)
		if err != nil {
			return fmt.Errorf("can't credit user %s: %w", finalized.UserID, err)
		}

		s.logger.Info("Deposit completed, balance credited",
			"transaction_id", finalized.ID,
			"user_id", finalized.UserID,
			"amount", finalized.Amount,
			"new_balance", newBalance,
		)
		return nil
	})

	if errors.Is(err, apperrors.ErrTransactionFinal) {
		// Another entry point finalized first, the credit (if any) was
		// already applied by the winner
		return finalized, nil
	}
	if err != nil {
		return finalized, err
	}

	return finalized, nil
}
