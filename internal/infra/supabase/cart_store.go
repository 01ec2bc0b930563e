package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Cart store: table `carts`, one row per (user_id, product_id, size)
// ============================================================

const cartsTable = "carts"

// CartStore implements port.CartStore on the `carts` table.
type CartStore struct {
	client *Client
}

// NewCartStore creates the cart store.
func NewCartStore(client *Client) *CartStore {
	return &CartStore{client: client}
}

// cartRow maps the `carts` table columns.
type cartRow struct {
	UserID             string  `json:"user_id"`
	ProductID          int     `json:"product_id"`
	ProductName        string  `json:"product_name"`
	ProductPrice       string  `json:"product_price"`
	ProductPriceNumber float64 `json:"product_price_number"`
	ProductImage       string  `json:"product_image"`
	ProductColor       string  `json:"product_color"`
	Size               string  `json:"size"`
	Quantity           int     `json:"quantity"`
}

func rowFromLine(userID string, l domain.CartLine) cartRow {
	return cartRow{
		UserID:             userID,
		ProductID:          l.ProductID,
		ProductName:        l.Name,
		ProductPrice:       l.DisplayPrice,
		ProductPriceNumber: l.UnitPrice,
		ProductImage:       l.ImageRef,
		ProductColor:       l.ColorLabel,
		Size:               l.Size,
		Quantity:           l.Quantity,
	}
}

func (r cartRow) toLine() domain.CartLine {
	return domain.CartLine{
		ProductID:    r.ProductID,
		Name:         r.ProductName,
		DisplayPrice: r.ProductPrice,
		UnitPrice:    r.ProductPriceNumber,
		ImageRef:     r.ProductImage,
		ColorLabel:   r.ProductColor,
		Size:         r.Size,
		Quantity:     r.Quantity,
	}
}

// ListByUser returns every cart line mirrored for the user.
func (s *CartStore) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Carts.ListByUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var lines []domain.CartLine
	err := s.client.call(ctx, "supabase/carts", func() error {
		path := fmt.Sprintf("%s?user_id=%s&order=created_at.asc", cartsTable, eq(userID))
		body, err := s.client.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		lines = []domain.CartLine{}
		if emptyRows(body) {
			return nil
		}

		var rows []cartRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode cart rows: %w", err)
		}
		for _, r := range rows {
			lines = append(lines, r.toLine())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Upsert writes the line, replacing the row with the same (user, product, size).
func (s *CartStore) Upsert(ctx context.Context, userID string, line domain.CartLine) error {
	ctx, span := tracer.Start(ctx, "Supabase.Carts.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("product.id", line.ProductID),
		attribute.String("product.size", line.Size),
	)

	return s.client.call(ctx, "supabase/carts", func() error {
		path := cartsTable + "?on_conflict=user_id,product_id,size"
		_, err := s.client.doPost(ctx, path, []cartRow{rowFromLine(userID, line)}, "resolution=merge-duplicates,return=minimal")
		return err
	})
}

// Delete removes the row for (user, product, size). Deleting a missing row succeeds.
func (s *CartStore) Delete(ctx context.Context, userID string, key domain.LineKey) error {
	ctx, span := tracer.Start(ctx, "Supabase.Carts.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("product.id", key.ProductID),
		attribute.String("product.size", key.Size),
	)

	return s.client.call(ctx, "supabase/carts", func() error {
		path := fmt.Sprintf("%s?user_id=%s&product_id=%s&size=%s",
			cartsTable, eq(userID), eq(strconv.Itoa(key.ProductID)), eq(key.Size))
		_, err := s.client.doDelete(ctx, path)
		return err
	})
}
