// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the engines in the
// service layer from the concrete stores and the auth provider.
package port

import (
	"context"

	"github.com/guloona/storefront-bff-go/internal/domain"
)

// ProfileStore keeps one profile document per user.
// Implemented by the Supabase and Firestore adapters (remote) and by the
// SQLite local store (local-only).
type ProfileStore interface {
	// Get returns *domain.ErrNotFound when the user has no profile.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	// Create is idempotent: creating an existing profile updates it instead.
	Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)
	// Update merges the patch into the stored document and returns the result.
	Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.UserProfile, error)
	// Delete reports whether a profile was removed.
	Delete(ctx context.Context, userID string) (bool, error)
}

// CartStore mirrors cart lines, one record per (user, product, size).
type CartStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	Upsert(ctx context.Context, userID string, line domain.CartLine) error
	Delete(ctx context.Context, userID string, key domain.LineKey) error
}

// FallbackStore is the durable client-side key-value store used when the
// remote profile store is unreachable. Get returns (nil, nil) on a miss.
type FallbackStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionProvider exposes the current authenticated identity and its transitions.
type SessionProvider interface {
	// CurrentUser returns nil when nobody is signed in or the session expired.
	CurrentUser() *domain.Identity
	IsAuthenticated() bool
	// Subscribe registers fn for every auth event and returns an unsubscribe func.
	Subscribe(fn func(domain.AuthEvent)) (unsubscribe func())
}
