package handler

import (
	"context"
	"net/http"

	"github.com/guloona/storefront-bff-go/internal/app"

	"go.uber.org/zap"
)

type contextKey string

const servicesKey contextKey = "services"

// SessionHeader carries the storefront session ID on requests and responses.
const SessionHeader = "X-Session-ID"

// SessionMiddleware resolves the X-Session-ID header to the session's
// services. A write without a known session opens a fresh signed-out one,
// whose ID is echoed back in the response header. Reads without a known
// session are served by the registry's shared anonymous services and open
// nothing.
func SessionMiddleware(reg *app.Registry, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			s, ok := reg.Get(id)
			switch {
			case ok:
				w.Header().Set(SessionHeader, s.ID)
			case isRead(r.Method):
				s = reg.Anonymous()
			default:
				s = reg.Open()
				w.Header().Set(SessionHeader, s.ID)
				if id != "" {
					logger.Debug("unknown session, opened a new one",
						zap.String("requested", id),
						zap.String("session_id", s.ID),
					)
				}
			}

			// Observe token expiry before the handler reads cart or profile state.
			s.Session.CurrentUser()

			ctx := context.WithValue(r.Context(), servicesKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// ServicesFromContext returns the session services injected by SessionMiddleware.
func ServicesFromContext(ctx context.Context) *app.Services {
	s, _ := ctx.Value(servicesKey).(*app.Services)
	return s
}
