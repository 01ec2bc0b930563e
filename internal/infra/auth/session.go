package auth

import (
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"go.uber.org/zap"
)

// DefaultRefreshDebounce is the window in which repeated token refreshes are ignored.
const DefaultRefreshDebounce = 5 * time.Second

type subscriber struct {
	id int
	fn func(domain.AuthEvent)
}

// Session tracks the signed-in identity of one storefront session and
// implements port.SessionProvider. Subscribers run synchronously, in
// registration order, on the goroutine that caused the transition.
type Session struct {
	verifier *TokenVerifier
	debounce time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.RWMutex
	user        *domain.Identity
	lastRefresh time.Time

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

// NewSession creates a signed-out session.
func NewSession(verifier *TokenVerifier, debounce time.Duration, logger *zap.Logger) *Session {
	return &Session{
		verifier: verifier,
		debounce: debounce,
		logger:   logger,
		now:      time.Now,
	}
}

// SignIn verifies the token and makes its subject the current user. When
// another user was signed in, SignedOut is emitted for them first so their
// state is gone before the new user's load starts.
func (s *Session) SignIn(token string) (*domain.Identity, error) {
	id, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.user
	s.user = id
	s.lastRefresh = s.now()
	s.mu.Unlock()

	if prev != nil && prev.ID != id.ID {
		s.logger.Info("session switched user", zap.String("previous_user_id", prev.ID), zap.String("user_id", id.ID))
		s.emit(domain.AuthEvent{Type: domain.SignedOut})
	}
	s.logger.Info("session signed in", zap.String("user_id", id.ID))
	s.emit(domain.AuthEvent{Type: domain.SignedIn, User: copyIdentity(id)})
	return copyIdentity(id), nil
}

// Refresh swaps in a renewed token for the same user. Refreshes arriving
// within the debounce window of the previous one are ignored; the returned
// bool reports whether this one was applied.
func (s *Session) Refresh(token string) (*domain.Identity, bool, error) {
	id, err := s.verifier.Verify(token)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	current := s.user
	if current == nil {
		s.mu.Unlock()
		return nil, false, &domain.ErrUnauthorized{Message: "no active session to refresh"}
	}
	if current.ID != id.ID {
		s.mu.Unlock()
		return nil, false, &domain.ErrUnauthorized{Message: "token belongs to another user"}
	}
	now := s.now()
	if now.Sub(s.lastRefresh) < s.debounce {
		s.mu.Unlock()
		s.logger.Debug("token refresh debounced", zap.String("user_id", id.ID))
		return copyIdentity(current), false, nil
	}
	s.user = id
	s.lastRefresh = now
	s.mu.Unlock()

	s.emit(domain.AuthEvent{Type: domain.TokenRefreshed, User: copyIdentity(id)})
	return copyIdentity(id), true, nil
}

// SignOut drops the current user. Signing out twice is a no-op.
func (s *Session) SignOut() {
	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.mu.Unlock()

	if prev == nil {
		return
	}
	s.logger.Info("session signed out", zap.String("user_id", prev.ID))
	s.emit(domain.AuthEvent{Type: domain.SignedOut})
}

// CurrentUser returns the signed-in identity, or nil when signed out or
// expired. The first call that sees an expired token signs the session out.
func (s *Session) CurrentUser() *domain.Identity {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()

	if user == nil {
		return nil
	}
	if user.Expired(s.now()) {
		s.expire(user)
		return nil
	}
	return copyIdentity(user)
}

// expire drops user if it is still the current one and emits SignedOut.
func (s *Session) expire(user *domain.Identity) {
	s.mu.Lock()
	if s.user != user {
		s.mu.Unlock()
		return
	}
	s.user = nil
	s.mu.Unlock()

	s.logger.Info("session token expired", zap.String("user_id", user.ID))
	s.emit(domain.AuthEvent{Type: domain.SignedOut})
}

// IsAuthenticated reports whether CurrentUser is non-nil.
func (s *Session) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

// Subscribe registers fn for auth events.
func (s *Session) Subscribe(fn func(domain.AuthEvent)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) emit(ev domain.AuthEvent) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

func copyIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
