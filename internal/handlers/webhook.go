package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/handlers/render"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
)

const signatureHeader = "X-Fedapay-Signature"

const maxWebhookBody = 64 << 10

// Webhook event payload pushed by the processor
type webhookEvent struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	TransactionID json.Number `json:"transaction_id"`
	Reason        string      `json:"reason,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
}

// handleWebhook authenticates and settles processor pushed events.
//
// The signature check happens over the raw body before anything is parsed,
// an invalid signature gets 401 and nothing is touched. Everything after a
// valid signature is acknowledged with 200 even when reconciliation fails:
// a non-2xx answer would only trigger the processor's retry storm, the
// anomaly is logged for operational follow up instead.
func handleWebhook(depositService depositService, secret string, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			render.ServiceError(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		if err := verifySignature(payload, r.Header.Get(signatureHeader), secret); err != nil {
			l.Warn("Webhook rejected", "error", err, "remote_addr", r.RemoteAddr)
			render.ServiceError(w, "Signature invalide", http.StatusUnauthorized)
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			l.Warn("Webhook payload unparseable", "error", err)
			render.ServiceError(w, "Payload invalide", http.StatusBadRequest)
			return
		}

		remoteStatus, ok := eventStatus(event)
		if !ok {
			l.Info("Unhandled webhook event", "event", event.Event)
			render.Success(w, nil, "Webhook traité avec succès")
			return
		}

		externalID := event.Data.TransactionID.String()
		_, err = depositService.Reconcile(r.Context(), externalID, remoteStatus, eventMessage(event))

		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			// No local transaction for this external id: acknowledged but
			// recorded, somebody has to look at it
			l.Error("Webhook for unknown transaction", "event", event.Event, "external_id", externalID)
		default:
			l.Error("Webhook reconciliation failed", "error", err, "event", event.Event, "external_id", externalID)
		}

		render.Success(w, nil, "Webhook traité avec succès")
	})
}

// eventStatus maps the event name to the processor status vocabulary
func eventStatus(event webhookEvent) (string, bool) {
	name, found := strings.CutPrefix(event.Event, "transaction.")
	if !found {
		return "", false
	}

	switch name {
	case "approved", "declined", "canceled", "cancelled", "failed":
		return name, true
	default:
		return "", false
	}
}

func eventMessage(event webhookEvent) string {
	switch {
	case event.Data.Reason != "":
		return "Paiement refusé: " + event.Data.Reason
	case event.Data.ErrorMessage != "":
		return "Échec du paiement: " + event.Data.ErrorMessage
	default:
		return ""
	}
}

// verifySignature checks the HMAC-SHA256 hex signature over the raw
// payload. An empty secret fails closed: every webhook is rejected until
// the secret is configured.
func verifySignature(payload []byte, signature string, secret string) error {
	if secret == "" {
		return errors.New("webhook secret not configured")
	}
	if signature == "" {
		return apperrors.ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return apperrors.ErrSignatureInvalid
	}

	return nil
}
