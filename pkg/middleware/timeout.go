package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeout bounds a request's context. A parent deadline that is already set is respected.
// contextFor is one of resilience.TimeoutConfig's context constructors.
func Timeout(contextFor func(context.Context) (context.Context, context.CancelFunc), logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, hasDeadline := r.Context().Deadline(); hasDeadline {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := contextFor(r.Context())
			defer cancel()

			if deadline, ok := ctx.Deadline(); ok {
				logger.Debug("Applied handler timeout",
					zap.String("path", r.URL.Path),
					zap.Duration("timeout", time.Until(deadline)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
