package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var profileTracer = otel.Tracer("service/profile")

// ProfileEngine resolves and edits the profile of the signed-in user.
// Reads go remote, then local fallback, then a profile synthesized from the
// auth metadata. Writes go remote and are demoted to the local fallback when
// the remote store fails. Store errors never reach the caller.
type ProfileEngine struct {
	session port.SessionProvider
	remote  port.ProfileStore
	local   port.FallbackStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	// ops serializes fetches and writes so a refresh never interleaves with an edit.
	ops sync.Mutex

	mu      sync.RWMutex
	profile *domain.UserProfile
	loading bool
	// epoch is bumped by Reset; results computed under an older epoch are dropped.
	epoch uint64
}

// NewProfileEngine creates an engine with no profile loaded.
func NewProfileEngine(session port.SessionProvider, remote port.ProfileStore, local port.FallbackStore, metrics *observability.Metrics, logger *zap.Logger) *ProfileEngine {
	return &ProfileEngine{
		session: session,
		remote:  remote,
		local:   local,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Profile returns a copy of the current profile, or nil.
func (e *ProfileEngine) Profile() *domain.UserProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile.Clone()
}

// Loading reports whether a fetch is in progress.
func (e *ProfileEngine) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// GetFullName returns "first last", or domain.FullNamePlaceholder when
// there is no profile or no name.
func (e *ProfileEngine) GetFullName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile.FullName()
}

// View returns the profile read model.
func (e *ProfileEngine) View() domain.ProfileView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.ProfileView{
		Profile:  e.profile.Clone(),
		Loading:  e.loading,
		FullName: e.profile.FullName(),
	}
}

// Reset drops the in-memory profile. Used on sign-out.
func (e *ProfileEngine) Reset() {
	e.mu.Lock()
	e.profile = nil
	e.epoch++
	e.mu.Unlock()
}

// Refresh refetches the profile of the signed-in user. Signed out, it
// drops the in-memory profile.
func (e *ProfileEngine) Refresh(ctx context.Context) *domain.UserProfile {
	user := e.session.CurrentUser()
	if user == nil {
		e.Reset()
		return nil
	}
	return e.FetchProfile(ctx, user.ID)
}

// FetchProfile resolves the profile of userID and adopts it while userID is
// still the signed-in user.
func (e *ProfileEngine) FetchProfile(ctx context.Context, userID string) *domain.UserProfile {
	e.ops.Lock()
	defer e.ops.Unlock()
	return e.fetch(ctx, userID)
}

func (e *ProfileEngine) fetch(ctx context.Context, userID string) *domain.UserProfile {
	ctx, span := profileTracer.Start(ctx, "ProfileEngine.FetchProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	epoch := e.currentEpoch()
	start := time.Now()
	e.setLoading(true)
	defer func() {
		e.setLoading(false)
		e.metrics.RecordDuration("profile_fetch", time.Since(start))
	}()

	profile, tier := e.resolve(ctx, userID)
	e.metrics.IncrProfileTier(tier)
	span.SetAttributes(attribute.String("profile.tier", tier))
	e.logger.Info("profile resolved", zap.String("user_id", userID), zap.String("tier", tier))

	e.adopt(userID, epoch, profile)
	return profile.Clone()
}

func (e *ProfileEngine) resolve(ctx context.Context, userID string) (*domain.UserProfile, string) {
	// Remote.
	remote, err := e.remote.Get(ctx, userID)
	if err == nil {
		e.saveLocal(ctx, remote)
		return remote, observability.TierRemote
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		e.metrics.IncrExternalError("profile_store")
		e.logger.Warn("remote profile fetch failed", zap.String("user_id", userID), zap.Error(err))
	}

	// Local fallback, pushed up to the remote store when possible.
	if local := e.loadLocal(ctx, userID); local != nil {
		synced, err := e.remote.Create(ctx, local)
		if err != nil {
			e.metrics.IncrExternalError("profile_store")
			e.logger.Warn("local profile sync-up failed", zap.String("user_id", userID), zap.Error(err))
			return local, observability.TierLocal
		}
		e.saveLocal(ctx, synced)
		return synced, observability.TierLocal
	}

	// Synthesized from the auth metadata.
	var meta domain.UserMetadata
	if user := e.session.CurrentUser(); user != nil && user.ID == userID {
		meta = user.Metadata
	}
	fresh := domain.NewProfile(userID, meta, e.now().UTC())
	created, err := e.remote.Create(ctx, fresh)
	if err != nil {
		e.metrics.IncrExternalError("profile_store")
		e.metrics.IncrLocalFallback("create")
		e.logger.Warn("profile create failed, keeping it locally", zap.String("user_id", userID), zap.Error(err))
		e.saveLocal(ctx, fresh)
		return fresh, observability.TierSynthesized
	}
	e.saveLocal(ctx, created)
	return created, observability.TierSynthesized
}

// UpdateProfile merges patch into the profile of the signed-in user. When
// the remote store fails the merge is applied to the known profile and kept
// in the local fallback only.
func (e *ProfileEngine) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	user, err := e.gate(OpUpdateProfile)
	if err != nil {
		return nil, err
	}

	e.ops.Lock()
	defer e.ops.Unlock()
	return e.update(ctx, user.ID, patch), nil
}

func (e *ProfileEngine) update(ctx context.Context, userID string, patch domain.ProfilePatch) *domain.UserProfile {
	ctx, span := profileTracer.Start(ctx, "ProfileEngine.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	epoch := e.currentEpoch()
	start := time.Now()
	defer func() { e.metrics.RecordDuration("profile_update", time.Since(start)) }()

	if patch.IsEmpty() {
		return e.Profile()
	}

	updated, err := e.remote.Update(ctx, userID, patch)
	if err == nil {
		e.saveLocal(ctx, updated)
		e.adopt(userID, epoch, updated)
		return updated.Clone()
	}

	e.metrics.IncrExternalError("profile_store")
	e.metrics.IncrLocalFallback("update")
	e.logger.Warn("remote profile update failed, keeping it locally", zap.String("user_id", userID), zap.Error(err))

	base := e.Profile()
	if base == nil || base.UserID != userID {
		base = e.loadLocal(ctx, userID)
	}
	if base == nil {
		base = domain.NewProfile(userID, domain.UserMetadata{}, e.now().UTC())
	}
	patch.ApplyTo(base)
	base.UserID = userID
	base.UpdatedAt = e.now().UTC()

	e.saveLocal(ctx, base)
	e.adopt(userID, epoch, base)
	return base.Clone()
}

// SaveCustomOrderDataToProfile copies custom-order answers into the empty
// fields of the profile. Fields the user already filled are never touched.
// Nothing to backfill is a successful no-op.
func (e *ProfileEngine) SaveCustomOrderDataToProfile(ctx context.Context, form domain.CustomOrderForm) (*domain.UserProfile, error) {
	user, err := e.gate(OpSaveCustomOrder)
	if err != nil {
		return nil, err
	}

	e.ops.Lock()
	defer e.ops.Unlock()

	// Backfill against the stored profile, not an empty one, when none is loaded yet.
	current := e.Profile()
	if current == nil || current.UserID != user.ID {
		current = e.fetch(ctx, user.ID)
	}
	patch, ok := BackfillPatch(current, form)
	if !ok {
		e.logger.Debug("custom order: nothing to backfill", zap.String("user_id", user.ID))
		return current, nil
	}
	return e.update(ctx, user.ID, patch), nil
}

func (e *ProfileEngine) gate(operation string) (*domain.Identity, error) {
	if user := e.session.CurrentUser(); user != nil {
		return user, nil
	}
	e.metrics.IncrGated(operation)
	return nil, &domain.ErrNotAuthenticated{Operation: operation}
}

func (e *ProfileEngine) setLoading(v bool) {
	e.mu.Lock()
	e.loading = v
	e.mu.Unlock()
}

func (e *ProfileEngine) currentEpoch() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.epoch
}

// adopt makes p the current profile unless the session moved to another
// user or the profile was reset since epoch.
func (e *ProfileEngine) adopt(userID string, epoch uint64, p *domain.UserProfile) {
	if user := e.session.CurrentUser(); user == nil || user.ID != userID {
		e.logger.Info("profile result discarded, user changed", zap.String("user_id", userID))
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		e.logger.Info("profile result discarded, reset meanwhile", zap.String("user_id", userID))
		return
	}
	e.profile = p.Clone()
}

// loadLocal reads the fallback copy. Unreadable or malformed data counts as absent.
func (e *ProfileEngine) loadLocal(ctx context.Context, userID string) *domain.UserProfile {
	key := domain.FallbackKey(userID)
	raw, err := e.local.Get(ctx, key)
	if err != nil {
		e.logger.Warn("local profile read failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	var p domain.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		e.logger.Warn("local profile is malformed, ignoring it",
			zap.String("user_id", userID),
			zap.Error(&domain.ErrMalformedData{Key: key, Err: err}),
		)
		return nil
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p
}

func (e *ProfileEngine) saveLocal(ctx context.Context, p *domain.UserProfile) {
	raw, err := json.Marshal(p)
	if err == nil {
		err = e.local.Set(ctx, domain.FallbackKey(p.UserID), raw)
	}
	if err != nil {
		e.logger.Warn("local profile write failed", zap.String("user_id", p.UserID), zap.Error(err))
	}
}
