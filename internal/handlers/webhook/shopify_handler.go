package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/orders"
	"go.uber.org/zap"
)

// ShopifyWebhookIDHeader identifies one delivery across retries
const ShopifyWebhookIDHeader = "X-Shopify-Webhook-Id"

// OrderService is satisfied by *orders.Service
type OrderService interface {
	HandleOrderCreated(ctx context.Context, tenantID uuid.UUID, deliveryID string, raw []byte) *orders.Result
}

// ShopifyHandler receives orders/create webhooks. It must be mounted behind
// middleware.ShopifyWebhookAuth.
type ShopifyHandler struct {
	service  OrderService
	tenantID uuid.UUID
	logger   *zap.Logger
}

// NewShopifyHandler creates the order webhook handler for one tenant
func NewShopifyHandler(service OrderService, tenantID uuid.UUID, logger *zap.Logger) *ShopifyHandler {
	return &ShopifyHandler{
		service:  service,
		tenantID: tenantID,
		logger:   logger,
	}
}

// HandleOrderCreated handles POST /v1/webhooks/shopify/orders
func (h *ShopifyHandler) HandleOrderCreated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("Failed to read order webhook body", zap.Error(err))
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": orders.MsgInvalidJSON})
		return
	}

	deliveryID := r.Header.Get(ShopifyWebhookIDHeader)
	result := h.service.HandleOrderCreated(r.Context(), h.tenantID, deliveryID, raw)

	h.logger.Info("Storefront order webhook handled",
		zap.String("delivery_id", deliveryID),
		zap.String("topic", r.Header.Get("X-Shopify-Topic")),
		zap.String("result", result.Message),
		zap.Int("status", result.Status),
	)
	writeJSON(w, h.logger, result.Status, result.Body)
}
