package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error        string `json:"error"`
	AuthRequired bool   `json:"auth_required,omitempty"`
	Operation    string `json:"operation,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return nil
}

// lineKeyParams reads the {productId}/{size} path segments.
func lineKeyParams(r *http.Request) (domain.LineKey, error) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil {
		return domain.LineKey{}, &domain.ErrValidation{Field: "productId", Message: "must be an integer"}
	}
	size, err := url.PathUnescape(chi.URLParam(r, "size"))
	if err != nil || size == "" {
		return domain.LineKey{}, &domain.ErrValidation{Field: "size", Message: "is required"}
	}
	return domain.LineKey{ProductID: productID, Size: size}, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notAuth *domain.ErrNotAuthenticated
	var unauthorized *domain.ErrUnauthorized
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notAuth):
		logger.Debug("sign-in required", zap.String("operation", notAuth.Operation))
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:        err.Error(),
			AuthRequired: true,
			Operation:    notAuth.Operation,
		})
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
