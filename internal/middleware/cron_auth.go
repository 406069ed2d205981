package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	pkgmiddleware "github.com/steamsolutionsvzla/odoo-megalabs/pkg/middleware"
	"go.uber.org/zap"
)

// CronSecretHeader authenticates scheduler calls
const CronSecretHeader = "X-Cron-Secret"

// CronAuth accepts the shared cron secret in X-Cron-Secret or as a Bearer token
type CronAuth struct {
	secret string
	logger *zap.Logger
}

// NewCronAuth creates the cron authenticator. An empty secret rejects every call.
func NewCronAuth(secret string, logger *zap.Logger) *CronAuth {
	return &CronAuth{secret: secret, logger: logger}
}

// Verify reports whether the request carries the cron secret
func (c *CronAuth) Verify(r *http.Request) bool {
	if c.secret == "" {
		return false
	}

	provided := r.Header.Get(CronSecretHeader)
	if provided == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			provided = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(c.secret)) == 1
}

// Middleware rejects unauthenticated cron calls with 401
func (c *CronAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Verify(r) {
			c.logger.Warn("Unauthorized cron request",
				zap.String("ip", pkgmiddleware.ClientIP(r)),
				zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
