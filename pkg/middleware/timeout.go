package middleware

import (
	"net/http"

	"github.com/kevin07696/card-gateway/pkg/resilience"
	"go.uber.org/zap"
)

// Timeout bounds every request with the handler budget unless the caller already set a deadline.
// Upstream timeouts are derived from this deadline.
func Timeout(cfg *resilience.TimeoutConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				logger.Debug("Request already has deadline, respecting parent timeout",
					zap.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := cfg.HandlerContext(r.Context())
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain applies middlewares so the first one listed is the outermost
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
