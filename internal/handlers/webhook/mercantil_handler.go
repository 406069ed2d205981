// Package webhook exposes the bank confirmation and storefront order webhooks.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/mercantil"
	"go.uber.org/zap"
)

// maxBodyBytes bounds webhook bodies
const maxBodyBytes = 1 << 20

// ConfirmationService is satisfied by *mercantil.ConfirmationService
type ConfirmationService interface {
	HandleNotification(ctx context.Context, tenantID uuid.UUID, raw []byte) *mercantil.NotificationResult
}

// MercantilHandler receives encrypted payment confirmations from the bank
type MercantilHandler struct {
	service  ConfirmationService
	tenantID uuid.UUID
	logger   *zap.Logger
}

// NewMercantilHandler creates the confirmation handler for one tenant
func NewMercantilHandler(service ConfirmationService, tenantID uuid.UUID, logger *zap.Logger) *MercantilHandler {
	return &MercantilHandler{
		service:  service,
		tenantID: tenantID,
		logger:   logger,
	}
}

// HandleConfirmation handles POST /v1/webhooks/mercantil/payment/confirmation
func (h *MercantilHandler) HandleConfirmation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("Failed to read confirmation body", zap.Error(err))
		writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	result := h.service.HandleNotification(r.Context(), h.tenantID, raw)
	writeJSON(w, h.logger, result.Status, result.Body)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
