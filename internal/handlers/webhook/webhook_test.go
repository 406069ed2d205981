package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/mercantil"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConfirmationService struct {
	mock.Mock
}

func (m *mockConfirmationService) HandleNotification(ctx context.Context, tenantID uuid.UUID, raw []byte) *mercantil.NotificationResult {
	args := m.Called(ctx, tenantID, raw)
	return args.Get(0).(*mercantil.NotificationResult)
}

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) HandleOrderCreated(ctx context.Context, tenantID uuid.UUID, deliveryID string, raw []byte) *orders.Result {
	args := m.Called(ctx, tenantID, deliveryID, raw)
	return args.Get(0).(*orders.Result)
}

func TestMercantilHandler_HandleConfirmation(t *testing.T) {
	tenant := uuid.New()
	body := `{"data":"c2lnbmVk"}`

	svc := new(mockConfirmationService)
	svc.On("HandleNotification", mock.Anything, tenant, []byte(body)).Return(&mercantil.NotificationResult{
		Status:  http.StatusOK,
		Outcome: mercantil.OutcomeApplied,
		Body:    map[string]interface{}{"codigo": "00", "code": 0},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/mercantil/payment/confirmation", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewMercantilHandler(svc, tenant, zap.NewNop()).HandleConfirmation(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"codigo":"00","code":0}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestMercantilHandler_PassesServiceStatus(t *testing.T) {
	tenant := uuid.New()
	svc := new(mockConfirmationService)
	svc.On("HandleNotification", mock.Anything, tenant, mock.Anything).Return(&mercantil.NotificationResult{
		Status: http.StatusInternalServerError,
		Body:   map[string]string{"error": "Internal server error"},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/mercantil/payment/confirmation", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	NewMercantilHandler(svc, tenant, zap.NewNop()).HandleConfirmation(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestMercantilHandler_MethodNotAllowed(t *testing.T) {
	svc := new(mockConfirmationService)
	rec := httptest.NewRecorder()
	NewMercantilHandler(svc, uuid.New(), zap.NewNop()).
		HandleConfirmation(rec, httptest.NewRequest(http.MethodGet, "/v1/webhooks/mercantil/payment/confirmation", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	svc.AssertNotCalled(t, "HandleNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestShopifyHandler_HandleOrderCreated(t *testing.T) {
	tenant := uuid.New()
	body := `{"id":9001,"name":"#1001"}`

	svc := new(mockOrderService)
	svc.On("HandleOrderCreated", mock.Anything, tenant, "delivery-1", []byte(body)).Return(&orders.Result{
		Status:  http.StatusOK,
		Message: orders.MsgLinkSent,
		Body:    map[string]interface{}{"message": orders.MsgLinkSent},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/shopify/orders", strings.NewReader(body))
	req.Header.Set(ShopifyWebhookIDHeader, "delivery-1")
	rec := httptest.NewRecorder()
	NewShopifyHandler(svc, tenant, zap.NewNop()).HandleOrderCreated(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, orders.MsgLinkSent, decoded["message"])
	svc.AssertExpectations(t)
}

func TestShopifyHandler_BodyTooLarge(t *testing.T) {
	svc := new(mockOrderService)
	big := strings.Repeat("x", maxBodyBytes+1)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/shopify/orders", strings.NewReader(big))
	rec := httptest.NewRecorder()
	NewShopifyHandler(svc, uuid.New(), zap.NewNop()).HandleOrderCreated(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), orders.MsgInvalidJSON)
	svc.AssertNotCalled(t, "HandleOrderCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
