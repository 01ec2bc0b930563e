package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
)

// ProfileStore is the local-only profile backend. Profiles live as JSON
// under ProfileKey, the same key the remote backends use for their fallback
// copy, so switching backends keeps what was saved locally.
type ProfileStore struct {
	store *Store
	now   func() time.Time
}

// NewProfileStore creates a profile store on top of the key-value store.
func NewProfileStore(store *Store) *ProfileStore {
	return &ProfileStore{store: store, now: time.Now}
}

// Get returns the profile of userID or *domain.ErrNotFound.
func (p *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := p.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return profile, nil
}

// Create stores the profile. An existing profile is updated with the
// non-empty fields of the new one.
func (p *ProfileStore) Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if profile.UserID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user ID is required"}
	}

	existing, err := p.load(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return p.Update(ctx, profile.UserID, profile.NonEmptyPatch())
	}

	row := profile.Clone()
	now := p.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if err := p.save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Update merges the patch into the stored profile, creating it if absent.
func (p *ProfileStore) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	now := p.now().UTC()
	current, err := p.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = domain.NewProfile(userID, domain.UserMetadata{}, now)
	}
	patch.ApplyTo(current)
	current.UpdatedAt = now
	if err := p.save(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes the profile and reports whether one existed.
func (p *ProfileStore) Delete(ctx context.Context, userID string) (bool, error) {
	return p.store.deleteKey(ctx, ProfileKey(userID))
}

func (p *ProfileStore) load(ctx context.Context, userID string) (*domain.UserProfile, error) {
	key := ProfileKey(userID)
	raw, err := p.store.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, err
	}
	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, &domain.ErrMalformedData{Key: key, Err: err}
	}
	return &profile, nil
}

func (p *ProfileStore) save(ctx context.Context, profile *domain.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return p.store.Set(ctx, ProfileKey(profile.UserID), raw)
}
