package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
	"github.com/xavierca1/amo-sbp-bridge/internal/usecase"
)

// PaymentSettler applies a verified callback to the store and CRM.
type PaymentSettler interface {
	Execute(ctx context.Context, in usecase.CallbackInput) error
}

// CallbackHandler receives signed payment notifications from the gateway.
// Contract: 400 only for missing required parameters or a checksum
// mismatch; everything else — including events we can't match — gets
// 200 {"status":"received"} so the gateway stops resending.
type CallbackHandler struct {
	Settle PaymentSettler
	Secret string
}

func NewCallbackHandler(settle PaymentSettler, secret string) *CallbackHandler {
	return &CallbackHandler{Settle: settle, Secret: secret}
}

func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// The gateway notifies via GET query parameters or, in the other
	// notification mode, via a POST form body. r.Form carries both.
	if err := r.ParseForm(); err != nil {
		log.Printf("❌ callback: unparseable request: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "malformed request"})
		return
	}
	query := r.Form

	mdOrder := query.Get("mdOrder")
	orderNumber := query.Get("orderNumber")
	operation := query.Get("operation")
	statusRaw := query.Get("status")

	if mdOrder == "" || orderNumber == "" || operation == "" || statusRaw == "" {
		log.Printf("❌ callback: missing required parameters (mdOrder=%q orderNumber=%q operation=%q status=%q)",
			mdOrder, orderNumber, operation, statusRaw)
		middleware.RecordCallback(operation, "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "missing required parameters"})
		return
	}

	status, err := strconv.Atoi(statusRaw)
	if err != nil {
		log.Printf("❌ callback: non-numeric status %q for order %s", statusRaw, orderNumber)
		middleware.RecordCallback(operation, "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid status"})
		return
	}

	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}

	checksum := query.Get("checksum")
	switch {
	case checksum == "":
		// Compatibility fallback for merchants provisioned without a
		// checksum. A real hole if this endpoint is exposed without the
		// shared secret, hence the loud log.
		log.Printf("⚠️ callback: unsigned callback accepted for order %s (no checksum supplied)", orderNumber)
	case !alfabank.VerifyChecksum(params, checksum, h.Secret):
		log.Printf("❌ callback: checksum mismatch for order %s (mdOrder %s)", orderNumber, mdOrder)
		middleware.RecordCallback(operation, "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "checksum mismatch"})
		return
	}

	input := usecase.CallbackInput{
		GatewayOrderID: mdOrder,
		OrderNumber:    orderNumber,
		Operation:      operation,
		Status:         status,
	}
	if err := h.Settle.Execute(r.Context(), input); err != nil {
		// Still acknowledge: the callback was authentic, the failure is
		// ours, and the sweep will reconcile what this pass could not.
		log.Printf("❌ callback: settling order %s failed: %v", orderNumber, err)
		middleware.RecordCallback(operation, "error")
		middleware.RecordIntegrationError("settle")
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	middleware.RecordCallback(operation, "ok")
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
