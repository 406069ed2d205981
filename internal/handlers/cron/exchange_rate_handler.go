package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/middleware"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/exchangerate"
	"go.uber.org/zap"
)

// RateRunner triggers an ingestion run. Satisfied by *exchangerate.Scheduler.
type RateRunner interface {
	RunNow(ctx context.Context) (*exchangerate.RunReport, bool)
}

// ExchangeRateHandler handles cron job endpoints for rate ingestion
type ExchangeRateHandler struct {
	runner RateRunner
	auth   *middleware.CronAuth
	logger *zap.Logger
}

// NewExchangeRateHandler creates a new exchange rate cron handler
func NewExchangeRateHandler(runner RateRunner, auth *middleware.CronAuth, logger *zap.Logger) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		runner: runner,
		auth:   auth,
		logger: logger,
	}
}

// FetchExchangeRateResponse is the body returned by the fetch endpoint
type FetchExchangeRateResponse struct {
	*exchangerate.RunReport
	Success     bool   `json:"success"`
	ProcessedAt string `json:"processed_at"`
}

// FetchExchangeRate handles POST /cron/fetch-exchange-rate
func (h *ExchangeRateHandler) FetchExchangeRate(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Exchange rate cron job triggered",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.auth.Verify(r) {
		h.logger.Warn("Unauthorized cron request", zap.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The run outlives a scheduler that hangs up early
	report, ok := h.runner.RunNow(context.WithoutCancel(r.Context()))
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	resp := FetchExchangeRateResponse{
		RunReport:   report,
		Success:     report.Status == exchangerate.StatusSuccess,
		ProcessedAt: time.Now().Format(time.RFC3339),
	}

	h.logger.Info("Exchange rate cron job completed",
		zap.String("status", report.Status),
		zap.String("rate", report.Rate),
		zap.Int("tenants", len(report.Tenants)),
	)

	status := http.StatusOK
	switch report.Status {
	case exchangerate.StatusPartial:
		status = http.StatusPartialContent
	case exchangerate.StatusFetchFailed:
		status = http.StatusBadGateway
	case exchangerate.StatusFailed:
		status = http.StatusInternalServerError
	}
	h.respondJSON(w, status, resp)
}

// HealthCheck handles GET /cron/health for monitoring
func (h *ExchangeRateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *ExchangeRateHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *ExchangeRateHandler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
