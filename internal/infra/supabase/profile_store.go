package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Profile store: table `user_profiles`, unique on user_id
// ============================================================

const profilesTable = "user_profiles"

// ProfileStore implements port.ProfileStore on the `user_profiles` table.
type ProfileStore struct {
	client *Client
	now    func() time.Time
}

// NewProfileStore creates the profile store.
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client, now: time.Now}
}

// Get fetches the profile of userID.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Profiles.Get")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var profile *domain.UserProfile
	err := s.client.call(ctx, "supabase/profiles", func() error {
		path := fmt.Sprintf("%s?user_id=%s&limit=1", profilesTable, eq(userID))
		body, err := s.client.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		p, err := firstProfile(body)
		if err != nil {
			return err
		}
		if p == nil {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: userID})
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Create inserts the profile. When a row already exists for the user the
// insert is skipped and only the non-empty fields of profile are merged into
// it, so stored columns are never blanked.
func (s *ProfileStore) Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Profiles.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", profile.UserID))

	if profile.UserID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user ID is required"}
	}

	row := profile.Clone()
	now := s.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	var created *domain.UserProfile
	err := s.client.call(ctx, "supabase/profiles", func() error {
		p, err := s.insertIfAbsent(ctx, row)
		created = p
		return err
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		return s.Update(ctx, row.UserID, profile.NonEmptyPatch())
	}
	return created, nil
}

// insertIfAbsent inserts row unless user_id is taken. It returns nil when
// a row already existed.
func (s *ProfileStore) insertIfAbsent(ctx context.Context, row *domain.UserProfile) (*domain.UserProfile, error) {
	path := profilesTable + "?on_conflict=user_id"
	body, err := s.client.doPost(ctx, path, []*domain.UserProfile{row}, "resolution=ignore-duplicates,return=representation")
	if err != nil {
		return nil, err
	}
	return firstProfile(body)
}

// Update merges the patch into the stored row. A user without a row gets one.
func (s *ProfileStore) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Profiles.Update")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	now := s.now().UTC()
	updates := map[string]any{"updated_at": now}
	for field, v := range patch.Columns() {
		updates[string(field)] = v
	}

	var updated *domain.UserProfile
	err := s.client.call(ctx, "supabase/profiles", func() error {
		path := fmt.Sprintf("%s?user_id=%s", profilesTable, eq(userID))
		body, err := s.client.doPatch(ctx, path, updates)
		if err != nil {
			return err
		}
		p, err := firstProfile(body)
		if err != nil {
			return err
		}
		if p != nil {
			updated = p
			return nil
		}

		row := domain.NewProfile(userID, domain.UserMetadata{}, now)
		patch.ApplyTo(row)
		if p, err = s.insertIfAbsent(ctx, row); err != nil {
			return err
		}
		if p == nil {
			// Created by someone else since the PATCH; retrying patches it.
			return fmt.Errorf("profile %s appeared during update", userID)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the profile row and reports whether one existed.
func (s *ProfileStore) Delete(ctx context.Context, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Profiles.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	deleted := false
	err := s.client.call(ctx, "supabase/profiles", func() error {
		path := fmt.Sprintf("%s?user_id=%s", profilesTable, eq(userID))
		body, err := s.client.doDelete(ctx, path)
		if err != nil {
			return err
		}
		deleted = !emptyRows(body)
		return nil
	})
	return deleted, err
}

func firstProfile(body []byte) (*domain.UserProfile, error) {
	if emptyRows(body) {
		return nil, nil
	}
	var rows []domain.UserProfile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("failed to decode profile: %w", err))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
