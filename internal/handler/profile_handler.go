package handler

import (
	"net/http"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Profile
// ============================================================

func profileGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		writeJSON(w, http.StatusOK, s.Profile.View())
	}
}

func profileUpdateHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profile")
		defer span.End()
		s := ServicesFromContext(ctx)

		var patch domain.ProfilePatch
		if err := decodeBody(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		profile, err := s.Profile.UpdateProfile(ctx, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// profileRefreshHandler re-runs the tiered lookup for the signed-in user.
// Signed out, it answers with an empty view.
func profileRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/refresh")
		defer span.End()
		s := ServicesFromContext(ctx)

		s.Profile.Refresh(ctx)
		writeJSON(w, http.StatusOK, s.Profile.View())
	}
}

func profileCustomOrderHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/custom-order")
		defer span.End()
		s := ServicesFromContext(ctx)

		var form domain.CustomOrderForm
		if err := decodeBody(r, &form); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		profile, err := s.Profile.SaveCustomOrderDataToProfile(ctx, form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}
