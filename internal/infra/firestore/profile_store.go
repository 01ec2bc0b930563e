// Package firestore is the document-collection backend for user profiles.
// Documents live in `user_profiles` with the user ID as document ID.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"

	"cloud.google.com/go/firestore"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	profilesCollection = "user_profiles"
	serviceName        = "firestore/profiles"
)

var tracer = otel.Tracer("firestore")

// NewClient connects to Firestore. An empty credentials file falls back to
// application default credentials (or the emulator when FIRESTORE_EMULATOR_HOST is set).
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient failed (project=%s): %w", projectID, err)
	}
	return client, nil
}

// ProfileStore implements port.ProfileStore on Firestore.
type ProfileStore struct {
	client *firestore.Client
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileStore creates the profile store.
func NewProfileStore(client *firestore.Client, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *ProfileStore {
	return &ProfileStore{client: client, cb: cb, cfg: cfg, logger: logger, now: time.Now}
}

// profileDoc is the stored document shape.
type profileDoc struct {
	UserID                string    `firestore:"user_id"`
	FirstName             string    `firestore:"first_name"`
	LastName              string    `firestore:"last_name"`
	Phone                 string    `firestore:"phone"`
	Location              string    `firestore:"location"`
	Bust                  string    `firestore:"bust"`
	Waist                 string    `firestore:"waist"`
	Hips                  string    `firestore:"hips"`
	ShoulderWidth         string    `firestore:"shoulder_width"`
	Height                string    `firestore:"height"`
	DressLengthPreference string    `firestore:"dress_length_preference"`
	PreferredColors       []string  `firestore:"preferred_colors"`
	PreferredFabrics      []string  `firestore:"preferred_fabrics"`
	StylePreferences      []string  `firestore:"style_preferences"`
	SizePreference        string    `firestore:"size_preference"`
	BudgetRange           string    `firestore:"budget_range"`
	CreatedAt             time.Time `firestore:"created_at"`
	UpdatedAt             time.Time `firestore:"updated_at"`
}

func docFromProfile(p *domain.UserProfile) profileDoc {
	return profileDoc{
		UserID:                p.UserID,
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Phone:                 p.Phone,
		Location:              p.Location,
		Bust:                  p.Bust,
		Waist:                 p.Waist,
		Hips:                  p.Hips,
		ShoulderWidth:         p.ShoulderWidth,
		Height:                p.Height,
		DressLengthPreference: p.DressLengthPreference,
		PreferredColors:       p.PreferredColors,
		PreferredFabrics:      p.PreferredFabrics,
		StylePreferences:      p.StylePreferences,
		SizePreference:        p.SizePreference,
		BudgetRange:           p.BudgetRange,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (d profileDoc) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:                d.UserID,
		FirstName:             d.FirstName,
		LastName:              d.LastName,
		Phone:                 d.Phone,
		Location:              d.Location,
		Bust:                  d.Bust,
		Waist:                 d.Waist,
		Hips:                  d.Hips,
		ShoulderWidth:         d.ShoulderWidth,
		Height:                d.Height,
		DressLengthPreference: d.DressLengthPreference,
		PreferredColors:       d.PreferredColors,
		PreferredFabrics:      d.PreferredFabrics,
		StylePreferences:      d.StylePreferences,
		SizePreference:        d.SizePreference,
		BudgetRange:           d.BudgetRange,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

func (s *ProfileStore) col() *firestore.CollectionRef {
	return s.client.Collection(profilesCollection)
}

func (s *ProfileStore) call(ctx context.Context, fn func() error) error {
	return resilience.Call(ctx, s.cb, s.cfg, serviceName, fn)
}

// Get returns the profile of userID or *domain.ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Firestore.Profiles.Get")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var profile *domain.UserProfile
	err := s.call(ctx, func() error {
		snap, err := s.col().Doc(userID).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: userID})
		}
		if err != nil {
			return err
		}
		p, err := decode(snap)
		if err != nil {
			return resilience.Permanent(err)
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Create stores a new profile document. When one already exists the
// non-empty fields of profile are merged into it instead.
func (s *ProfileStore) Create(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Firestore.Profiles.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", profile.UserID))

	if strings.TrimSpace(profile.UserID) == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user ID is required"}
	}

	row := profile.Clone()
	now := s.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	exists := false
	err := s.call(ctx, func() error {
		_, err := s.col().Doc(row.UserID).Create(ctx, docFromProfile(row))
		if status.Code(err) == codes.AlreadyExists {
			exists = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Debug("firestore: profile exists, create degrades to update", zap.String("user_id", row.UserID))
		return s.Update(ctx, row.UserID, profile.NonEmptyPatch())
	}
	return row, nil
}

// Update merges the patch into the stored document inside a transaction,
// creating the document when it does not exist yet.
func (s *ProfileStore) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Firestore.Profiles.Update")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var updated *domain.UserProfile
	err := s.call(ctx, func() error {
		ref := s.col().Doc(userID)
		return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			now := s.now().UTC()
			current := domain.NewProfile(userID, domain.UserMetadata{}, now)

			snap, err := tx.Get(ref)
			switch {
			case status.Code(err) == codes.NotFound:
			case err != nil:
				return err
			default:
				if current, err = decode(snap); err != nil {
					return err
				}
			}

			patch.ApplyTo(current)
			current.UpdatedAt = now
			if err := tx.Set(ref, docFromProfile(current)); err != nil {
				return err
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the document and reports whether it existed.
func (s *ProfileStore) Delete(ctx context.Context, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Firestore.Profiles.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	deleted := false
	err := s.call(ctx, func() error {
		_, err := s.col().Doc(userID).Delete(ctx, firestore.Exists)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func decode(snap *firestore.DocumentSnapshot) (*domain.UserProfile, error) {
	if snap == nil || !snap.Exists() {
		return nil, errors.New("firestore: empty snapshot")
	}
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, &domain.ErrMalformedData{Key: snap.Ref.ID, Err: err}
	}
	p := doc.toDomain()
	p.UserID = snap.Ref.ID
	return p, nil
}
