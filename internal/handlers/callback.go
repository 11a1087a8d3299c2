package handlers

import (
	"net/http"
	"net/url"

	"github.com/rufusakande/xpaie-client-backend/internal/logger"
)

// handleCallback settles the browser redirect from the hosted payment page.
//
// The status query parameter is client controlled so it is only a hint: the
// real outcome is confirmed with a status fetch from the processor before
// reconciliation. Whatever happens the user ends up redirected to the
// result page, a payment callback must never strand the browser on a JSON
// error.
func handleCallback(depositService depositService, processor processorStatusFetcher, clientURL string, l logger.Logger) http.Handler {
	redirect := func(w http.ResponseWriter, r *http.Request, params url.Values) {
		http.Redirect(w, r, clientURL+"/payment/result?"+params.Encode(), http.StatusFound)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalID := r.URL.Query().Get("id")
		if externalID == "" {
			redirect(w, r, url.Values{"status": {"error"}})
			return
		}

		observedStatus := r.URL.Query().Get("status")

		remote, err := processor.GetTransactionStatus(r.Context(), externalID)
		if err != nil {
			l.Warn("Callback status confirmation failed", "error", err, "external_id", externalID)
		} else {
			observedStatus = remote.Status
		}

		t, err := depositService.Reconcile(r.Context(), externalID, observedStatus, "")
		if err != nil {
			l.Error("Callback reconciliation failed", "error", err, "external_id", externalID)
			redirect(w, r, url.Values{"status": {"error"}})
			return
		}

		redirect(w, r, url.Values{
			"status":      {t.Status},
			"transaction": {t.ID.String()},
		})
	})
}
