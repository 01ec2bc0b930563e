// Package app wires the per-session storefront services together and keeps
// them in a registry keyed by session ID.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/auth"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"
	"github.com/guloona/storefront-bff-go/internal/port"
	"github.com/guloona/storefront-bff-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deps are the process-wide collaborators shared by every session.
type Deps struct {
	Verifier        *auth.TokenVerifier
	CartStore       port.CartStore
	ProfileStore    port.ProfileStore
	Fallback        port.FallbackStore
	MirrorBulkhead  *resilience.Bulkhead
	MirrorTimeout   time.Duration
	RefreshDebounce time.Duration
	LoadTimeout     time.Duration
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// Services is everything one browser session talks to: its auth session
// and its cart and profile engines. Sign-in loads both engines, sign-out
// clears them.
type Services struct {
	ID      string
	Session *auth.Session
	Cart    *service.CartEngine
	Profile *service.ProfileEngine

	logger      *zap.Logger
	loadTimeout time.Duration
	unsubscribe func()

	// loaded is closed when the reload started by the latest sign-in ends.
	mu     sync.Mutex
	loaded chan struct{}
}

// NewServices builds the services of one session and subscribes the
// engines to its auth events.
func NewServices(id string, deps Deps) *Services {
	logger := deps.Logger.With(zap.String("session_id", id))
	session := auth.NewSession(deps.Verifier, deps.RefreshDebounce, logger)
	mirror := service.NewMirror(deps.CartStore, deps.MirrorBulkhead, deps.MirrorTimeout, deps.Metrics, logger)

	loadTimeout := deps.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 15 * time.Second
	}

	s := &Services{
		ID:          id,
		Session:     session,
		Cart:        service.NewCartEngine(session, deps.CartStore, mirror, deps.Metrics, logger),
		Profile:     service.NewProfileEngine(session, deps.ProfileStore, deps.Fallback, deps.Metrics, logger),
		logger:      logger,
		loadTimeout: loadTimeout,
		loaded:      make(chan struct{}),
	}
	close(s.loaded)
	s.unsubscribe = session.Subscribe(s.onAuthEvent)
	return s
}

func (s *Services) onAuthEvent(ev domain.AuthEvent) {
	switch ev.Type {
	case domain.SignedIn:
		userID := ev.User.ID
		done := make(chan struct{})
		s.mu.Lock()
		s.loaded = done
		s.mu.Unlock()
		go func() {
			defer close(done)
			ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
			defer cancel()
			s.load(ctx, userID)
		}()
	case domain.SignedOut:
		s.Cart.Clear()
		s.Profile.Reset()
	case domain.TokenRefreshed:
		// Same user, nothing to reload.
	}
}

// load fetches the cart and the profile of userID concurrently.
func (s *Services) load(ctx context.Context, userID string) {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Cart.Load(gCtx, userID); err != nil {
			s.logger.Warn("sign-in cart load failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		s.Profile.FetchProfile(gCtx, userID)
		return nil
	})
	_ = g.Wait()
}

// WaitLoaded blocks until the reload started by the latest sign-in has finished.
func (s *Services) WaitLoaded(ctx context.Context) error {
	s.mu.Lock()
	done := s.loaded
	s.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signs the session out and detaches the engines. Mirror writes
// already issued still complete.
func (s *Services) Close() {
	s.Session.SignOut()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
