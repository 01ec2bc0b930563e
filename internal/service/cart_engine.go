// Package service holds the storefront engines: the cart and profile
// reconciliation logic that sits between the UI-facing handlers and the stores.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var cartTracer = otel.Tracer("service/cart")

// Gated operation names, used in ErrNotAuthenticated and as metric labels.
const (
	OpAddItem         = "add item"
	OpRemoveItem      = "remove item"
	OpUpdateQuantity  = "update quantity"
	OpUpdateProfile   = "update profile"
	OpSaveCustomOrder = "save custom order"
)

// CartEngine owns the in-memory cart of one session. Mutations apply to
// memory under a lock and are mirrored to the remote cart store in the
// background; a failed mirror never rolls the memory state back.
type CartEngine struct {
	session port.SessionProvider
	store   port.CartStore
	mirror  *Mirror
	metrics *observability.Metrics
	logger  *zap.Logger

	mu   sync.Mutex
	cart domain.Cart
	// epoch is bumped by Clear; a load started under an older epoch is stale.
	epoch uint64

	hookMu         sync.RWMutex
	onAuthRequired func(operation string)
}

// NewCartEngine creates an empty, closed cart.
func NewCartEngine(session port.SessionProvider, store port.CartStore, mirror *Mirror, metrics *observability.Metrics, logger *zap.Logger) *CartEngine {
	return &CartEngine{
		session: session,
		store:   store,
		mirror:  mirror,
		metrics: metrics,
		logger:  logger,
	}
}

// OnAuthRequired registers fn to run whenever a mutation is rejected
// because nobody is signed in.
func (e *CartEngine) OnAuthRequired(fn func(operation string)) {
	e.hookMu.Lock()
	e.onAuthRequired = fn
	e.hookMu.Unlock()
}

// gate returns the signed-in user, or rejects the operation.
func (e *CartEngine) gate(operation string) (*domain.Identity, error) {
	user := e.session.CurrentUser()
	if user != nil {
		return user, nil
	}

	e.metrics.IncrGated(operation)
	e.logger.Info("cart mutation needs sign-in", zap.String("operation", operation))

	e.hookMu.RLock()
	fn := e.onAuthRequired
	e.hookMu.RUnlock()
	if fn != nil {
		fn(operation)
	}
	return nil, &domain.ErrNotAuthenticated{Operation: operation}
}

// AddItem puts one unit of line in the cart. An existing line with the same
// product and size has its quantity incremented instead.
func (e *CartEngine) AddItem(line domain.CartLine) (domain.CartSnapshot, error) {
	user, err := e.gate(OpAddItem)
	if err != nil {
		return e.Snapshot(), err
	}
	if err := validateKey(line.Key()); err != nil {
		return e.Snapshot(), err
	}

	e.mu.Lock()
	result := e.cart.Add(line)
	snap := e.cart.Snapshot()
	e.mu.Unlock()

	e.mirror.Upsert(user.ID, result)
	return snap, nil
}

// RemoveItem deletes the line for (productID, size). Removing an absent
// line changes nothing but still mirrors the delete.
func (e *CartEngine) RemoveItem(productID int, size string) (domain.CartSnapshot, error) {
	user, err := e.gate(OpRemoveItem)
	if err != nil {
		return e.Snapshot(), err
	}
	return e.remove(user.ID, domain.LineKey{ProductID: productID, Size: size}), nil
}

// UpdateQuantity sets the quantity of the line for (productID, size). A
// quantity of zero or less removes the line. Updating an absent line with a
// positive quantity is a no-op.
func (e *CartEngine) UpdateQuantity(productID int, size string, quantity int) (domain.CartSnapshot, error) {
	user, err := e.gate(OpUpdateQuantity)
	if err != nil {
		return e.Snapshot(), err
	}
	key := domain.LineKey{ProductID: productID, Size: size}
	if quantity <= 0 {
		return e.remove(user.ID, key), nil
	}

	e.mu.Lock()
	line, _, found := e.cart.SetQuantity(key, quantity)
	snap := e.cart.Snapshot()
	e.mu.Unlock()

	if found {
		e.mirror.Upsert(user.ID, line)
	}
	return snap, nil
}

func (e *CartEngine) remove(userID string, key domain.LineKey) domain.CartSnapshot {
	e.mu.Lock()
	e.cart.Remove(key)
	snap := e.cart.Snapshot()
	e.mu.Unlock()

	e.mirror.Delete(userID, key)
	return snap
}

// Clear empties the in-memory cart. The remote cart is left alone so the
// next sign-in restores it.
func (e *CartEngine) Clear() {
	e.mu.Lock()
	e.cart.Clear()
	e.epoch++
	e.mu.Unlock()
}

// Open shows the cart.
func (e *CartEngine) Open() bool {
	return e.setOpen(func(bool) bool { return true })
}

// Close hides the cart.
func (e *CartEngine) Close() bool {
	return e.setOpen(func(bool) bool { return false })
}

// Toggle flips the visibility flag and returns the new value.
func (e *CartEngine) Toggle() bool {
	return e.setOpen(func(open bool) bool { return !open })
}

func (e *CartEngine) setOpen(next func(bool) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.SetOpen(next(e.cart.IsOpen()))
	return e.cart.IsOpen()
}

func (e *CartEngine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.ItemCount()
}

func (e *CartEngine) TotalPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.TotalPrice()
}

// Snapshot returns a copy of the cart.
func (e *CartEngine) Snapshot() domain.CartSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Snapshot()
}

// Load replaces the in-memory cart with the remote lines of userID. Pending
// mirror writes are drained first so the read sees them. On failure the
// in-memory cart is kept; the result is discarded if userID is no longer
// signed in when the read completes or the cart was cleared meanwhile.
func (e *CartEngine) Load(ctx context.Context, userID string) error {
	ctx, span := cartTracer.Start(ctx, "CartEngine.Load")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { e.metrics.RecordDuration("cart_load", time.Since(start)) }()

	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	if err := e.mirror.Wait(ctx); err != nil {
		e.logger.Warn("cart load: pending mirror writes not drained", zap.String("user_id", userID), zap.Error(err))
	}

	lines, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		e.metrics.IncrExternalError("cart_store")
		e.logger.Error("cart load failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if cur := e.session.CurrentUser(); cur == nil || cur.ID != userID {
		e.logger.Info("cart load discarded, user changed", zap.String("user_id", userID))
		return nil
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.logger.Info("cart load discarded, cart cleared meanwhile", zap.String("user_id", userID))
		return nil
	}
	e.cart.Replace(lines)
	count := e.cart.ItemCount()
	e.mu.Unlock()

	e.logger.Info("cart loaded",
		zap.String("user_id", userID),
		zap.Int("lines", len(lines)),
		zap.Int("items", count),
	)
	return nil
}

// WaitForMirror blocks until the background writes issued so far are done.
func (e *CartEngine) WaitForMirror(ctx context.Context) error {
	return e.mirror.Wait(ctx)
}

func validateKey(key domain.LineKey) error {
	if key.ProductID <= 0 {
		return &domain.ErrValidation{Field: "product_id", Message: "must be a positive integer"}
	}
	if key.Size == "" {
		return &domain.ErrValidation{Field: "size", Message: "is required"}
	}
	return nil
}
