package handler

import (
	"net/http"

	"github.com/guloona/storefront-bff-go/internal/app"
	"github.com/guloona/storefront-bff-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Session
// ============================================================

func sessionResponse(s *app.Services, user *domain.Identity) domain.SessionResponse {
	resp := domain.SessionResponse{SessionID: s.ID}
	if user != nil {
		resp.UserID = user.ID
		resp.Email = user.Email
		if !user.ExpiresAt.IsZero() {
			exp := user.ExpiresAt
			resp.ExpiresAt = &exp
		}
	}
	return resp
}

func sessionGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		writeJSON(w, http.StatusOK, sessionResponse(s, s.Session.CurrentUser()))
	}
}

// sessionCreateHandler signs the session in and answers once the cart and
// profile of the user have been loaded, or the request is cancelled.
func sessionCreateHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session")
		defer span.End()
		s := ServicesFromContext(ctx)

		var req domain.SessionRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		user, err := s.Session.SignIn(req.AccessToken)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := s.WaitLoaded(ctx); err != nil {
			logger.Warn("sign-in load still running", zap.String("session_id", s.ID), zap.Error(err))
		}
		writeJSON(w, http.StatusCreated, sessionResponse(s, user))
	}
}

func sessionRefreshHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/session/refresh")
		defer span.End()
		s := ServicesFromContext(r.Context())

		var req domain.SessionRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		user, applied, err := s.Session.Refresh(req.AccessToken)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := sessionResponse(s, user)
		resp.Refreshed = applied
		writeJSON(w, http.StatusOK, resp)
	}
}

// sessionDeleteHandler signs out and drops the session. In-flight cart
// writes still complete.
func sessionDeleteHandler(reg *app.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		reg.Close(s.ID)
		w.Header().Del(SessionHeader)
		w.WriteHeader(http.StatusNoContent)
	}
}
