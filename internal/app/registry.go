package app

import (
	"context"

	"github.com/guloona/storefront-bff-go/internal/infra/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry maps session IDs to their services. Sessions idle for longer
// than the TTL are evicted and closed.
type Registry struct {
	deps      Deps
	sessions  *cache.InMemory[*Services]
	anonymous *Services
}

// NewRegistry creates an empty registry backed by the TTL cache.
func NewRegistry(deps Deps, sessions *cache.InMemory[*Services]) *Registry {
	r := &Registry{deps: deps, sessions: sessions, anonymous: NewServices("", deps)}
	sessions.OnEvict(func(id string, s *Services) {
		s.Close()
		r.deps.Logger.Info("session closed", zap.String("session_id", id))
		r.report()
	})
	return r
}

// Open creates a new signed-out session.
func (r *Registry) Open() *Services {
	id := uuid.NewString()
	s := NewServices(id, r.deps)
	r.sessions.Set(id, s)
	r.report()
	return s
}

// Anonymous returns the shared signed-out services used to answer reads
// from clients that hold no session. It is never registered and never
// signed in, so its cart and profile stay empty.
func (r *Registry) Anonymous() *Services {
	return r.anonymous
}

// Get returns the session with the given ID and extends its idle TTL.
func (r *Registry) Get(id string) (*Services, bool) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	r.sessions.Touch(id)
	return s, true
}

// Close signs out and drops the session. Unknown IDs are ignored.
func (r *Registry) Close(id string) {
	r.sessions.Delete(id)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) report() {
	r.deps.Metrics.SetActiveSessions(r.sessions.Len())
}

// Drain waits for the background cart writes of every open session.
func (r *Registry) Drain(ctx context.Context) error {
	var open []*Services
	r.sessions.Range(func(_ string, s *Services) { open = append(open, s) })

	for _, s := range open {
		if err := s.Cart.WaitForMirror(ctx); err != nil {
			return err
		}
	}
	return nil
}
