package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	pkgmiddleware "github.com/steamsolutionsvzla/odoo-megalabs/pkg/middleware"
	"go.uber.org/zap"
)

// ShopifySignatureHeader carries the base64 HMAC of the raw webhook body
const ShopifySignatureHeader = "X-Shopify-Hmac-Sha256"

// maxWebhookBody bounds how much of a webhook body is read for verification
const maxWebhookBody = 1 << 20

// ShopifyWebhookAuth authenticates storefront webhooks by their HMAC signature
type ShopifyWebhookAuth struct {
	params   ports.ParameterResolver
	tenantID uuid.UUID
	logger   *zap.Logger
}

// NewShopifyWebhookAuth creates the authenticator. The shared secret is resolved
// per request so rotating shopify.api_secret needs no restart.
func NewShopifyWebhookAuth(params ports.ParameterResolver, tenantID uuid.UUID, logger *zap.Logger) *ShopifyWebhookAuth {
	return &ShopifyWebhookAuth{
		params:   params,
		tenantID: tenantID,
		logger:   logger,
	}
}

// Middleware verifies the signature before anything parses the body
func (a *ShopifyWebhookAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := pkgmiddleware.ClientIP(r)

		signature := r.Header.Get(ShopifySignatureHeader)
		if strings.TrimSpace(signature) == "" {
			a.logger.Warn("Storefront webhook missing signature",
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		secret, err := a.params.Require(r.Context(), a.tenantID, domain.ParamShopifySecret)
		if err != nil {
			if domain.IsConfigError(err) {
				a.logger.Error("Storefront webhook secret not configured",
					zap.String("key", domain.ParamShopifySecret),
					zap.String("tenant_id", a.tenantID.String()))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			a.logger.Error("Failed to resolve storefront webhook secret", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			a.logger.Error("Failed to read request body",
				zap.String("ip", clientIP),
				zap.Error(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		// Restore body for downstream handlers
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !VerifyShopifySignature(body, signature, secret) {
			a.logger.Warn("Storefront webhook HMAC verification failed",
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		a.logger.Debug("Storefront webhook authenticated",
			zap.String("ip", clientIP),
			zap.String("path", r.URL.Path))

		next.ServeHTTP(w, r)
	})
}

// VerifyShopifySignature checks the base64 HMAC-SHA256 of rawBody in constant time.
// A blank header or secret never verifies.
func VerifyShopifySignature(rawBody []byte, signatureHeader, sharedSecret string) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || sharedSecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(sharedSecret))
	h.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}
