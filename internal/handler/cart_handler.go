package handler

import (
	"net/http"

	"github.com/guloona/storefront-bff-go/internal/app"
	"github.com/guloona/storefront-bff-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Cart
// ============================================================

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type visibilityResponse struct {
	IsOpen bool `json:"is_open"`
}

func cartGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		writeJSON(w, http.StatusOK, s.Cart.Snapshot())
	}
}

// cartClearHandler empties the in-memory cart only. The stored cart is
// left as is and comes back on the next sign-in.
func cartClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		s.Cart.Clear()
		writeJSON(w, http.StatusOK, s.Cart.Snapshot())
	}
}

func cartAddHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/cart/items")
		defer span.End()
		s := ServicesFromContext(r.Context())

		var line domain.CartLine
		if err := decodeBody(r, &line); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		snap, err := s.Cart.AddItem(line)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func cartUpdateQuantityHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PUT /v1/cart/items/{productId}/{size}")
		defer span.End()
		s := ServicesFromContext(r.Context())

		key, err := lineKeyParams(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req quantityRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Quantity == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "quantity", Message: "is required"}, logger)
			return
		}

		snap, err := s.Cart.UpdateQuantity(key.ProductID, key.Size, *req.Quantity)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func cartRemoveHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/cart/items/{productId}/{size}")
		defer span.End()
		s := ServicesFromContext(r.Context())

		key, err := lineKeyParams(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		snap, err := s.Cart.RemoveItem(key.ProductID, key.Size)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func cartVisibilityHandler(set func(*app.Services) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ServicesFromContext(r.Context())
		writeJSON(w, http.StatusOK, visibilityResponse{IsOpen: set(s)})
	}
}
