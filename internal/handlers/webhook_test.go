package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(payload string, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	return req
}

func TestWebhook(t *testing.T) {
	approvedPayload := `{"event": "transaction.approved", "data": {"transaction_id": 4521}}`

	t.Run("valid signature reconciles", func(t *testing.T) {
		var gotExternalID, gotStatus string
		svc := &serviceStub{
			t: t,
			reconcile: func(externalID, remoteStatus, message string) (models.Transaction, error) {
				gotExternalID, gotStatus = externalID, remoteStatus
				return testTransaction(), nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, webhookRequest(approvedPayload, sign(approvedPayload, testWebhookSecret)))

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.True(t, envelope.Success)
		require.Equal(t, "4521", gotExternalID, "numeric transaction id should be matched as string")
		require.Equal(t, "approved", gotStatus)
	})

	t.Run("invalid signature rejected without side effects", func(t *testing.T) {
		svc := &serviceStub{t: t} // any service call fails the test
		router := newTestRouter(svc, &statusFetcherStub{})

		res, envelope := do(t, router, webhookRequest(approvedPayload, "deadbeef"))

		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.False(t, envelope.Success)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, _ := do(t, router, webhookRequest(approvedPayload, ""))

		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("empty secret fails closed", func(t *testing.T) {
		router := NewRouter(
			RouterConfig{WebhookSecret: "", ClientURL: testClientURL},
			&serviceStub{t: t},
			&statusFetcherStub{},
			logger.NewNoOpLogger(),
		)

		// Even a correctly signed request must be rejected: with no secret
		// configured there is nothing to verify against
		res, _ := do(t, router, webhookRequest(approvedPayload, sign(approvedPayload, "")))

		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("unparseable payload", func(t *testing.T) {
		payload := `not json at all`
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, _ := do(t, router, webhookRequest(payload, sign(payload, testWebhookSecret)))

		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("unknown transaction still acknowledged", func(t *testing.T) {
		svc := &serviceStub{
			t: t,
			reconcile: func(externalID, remoteStatus, message string) (models.Transaction, error) {
				return models.Transaction{}, apperrors.ErrTransactionNotFound
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, _ := do(t, router, webhookRequest(approvedPayload, sign(approvedPayload, testWebhookSecret)))

		require.Equal(t, http.StatusOK, res.StatusCode, "a 200 keeps the processor from retrying forever")
	})

	t.Run("unhandled event acknowledged without reconciliation", func(t *testing.T) {
		payload := `{"event": "transaction.created", "data": {"transaction_id": 4521}}`
		router := newTestRouter(&serviceStub{t: t}, &statusFetcherStub{})

		res, envelope := do(t, router, webhookRequest(payload, sign(payload, testWebhookSecret)))

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.True(t, envelope.Success)
	})

	t.Run("declined reason forwarded", func(t *testing.T) {
		payload := `{"event": "transaction.declined", "data": {"transaction_id": "4521", "reason": "Solde insuffisant"}}`
		var gotMessage string
		svc := &serviceStub{
			t: t,
			reconcile: func(externalID, remoteStatus, message string) (models.Transaction, error) {
				gotMessage = message
				return testTransaction(), nil
			},
		}
		router := newTestRouter(svc, &statusFetcherStub{})

		res, _ := do(t, router, webhookRequest(payload, sign(payload, testWebhookSecret)))

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "Paiement refusé: Solde insuffisant", gotMessage)
	})
}

func TestEventStatus(t *testing.T) {
	tests := []struct {
		event  string
		status string
		ok     bool
	}{
		{"transaction.approved", "approved", true},
		{"transaction.declined", "declined", true},
		{"transaction.canceled", "canceled", true},
		{"transaction.cancelled", "cancelled", true},
		{"transaction.failed", "failed", true},
		{"transaction.created", "", false},
		{"transaction.updated", "", false},
		{"payout.approved", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run("event "+tt.event, func(t *testing.T) {
			status, ok := eventStatus(webhookEvent{Event: tt.event})
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.status, status)
		})
	}
}
