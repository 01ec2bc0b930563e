package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"
	"github.com/guloona/storefront-bff-go/internal/service"

	"go.uber.org/zap"
)

var errTransport = errors.New("connection refused")

// --- Session ---

type fakeSession struct {
	mu   sync.Mutex
	user *domain.Identity
}

func signedIn(id string, meta domain.UserMetadata) *fakeSession {
	return &fakeSession{user: &domain.Identity{ID: id, Metadata: meta}}
}

func (s *fakeSession) set(user *domain.Identity) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *fakeSession) CurrentUser() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *fakeSession) IsAuthenticated() bool { return s.CurrentUser() != nil }

func (s *fakeSession) Subscribe(func(domain.AuthEvent)) func() { return func() {} }

// --- Cart store ---

type cartOp struct {
	op       string
	userID   string
	key      domain.LineKey
	quantity int
}

type fakeCartStore struct {
	mu    sync.Mutex
	rows  map[string]map[domain.LineKey]domain.CartLine
	ops   []cartOp
	err   error
	delay func(op cartOp) time.Duration
	// afterList runs once a read has produced its lines.
	afterList func()
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{rows: make(map[string]map[domain.LineKey]domain.CartLine)}
}

func (f *fakeCartStore) seed(userID string, lines ...domain.CartLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[domain.LineKey]domain.CartLine)
	}
	for _, l := range lines {
		f.rows[userID][l.Key()] = l
	}
}

func (f *fakeCartStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeCartStore) line(userID string, key domain.LineKey) (domain.CartLine, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[userID][key]
	return l, ok
}

func (f *fakeCartStore) recorded() []cartOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cartOp(nil), f.ops...)
}

func (f *fakeCartStore) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	var out []domain.CartLine
	for _, l := range f.rows[userID] {
		out = append(out, l)
	}
	after := f.afterList
	f.mu.Unlock()

	if after != nil {
		after()
	}
	return out, nil
}

func (f *fakeCartStore) Upsert(ctx context.Context, userID string, line domain.CartLine) error {
	return f.write(ctx, cartOp{op: service.MirrorUpsert, userID: userID, key: line.Key(), quantity: line.Quantity}, func() {
		if f.rows[userID] == nil {
			f.rows[userID] = make(map[domain.LineKey]domain.CartLine)
		}
		f.rows[userID][line.Key()] = line
	})
}

func (f *fakeCartStore) Delete(ctx context.Context, userID string, key domain.LineKey) error {
	return f.write(ctx, cartOp{op: service.MirrorDelete, userID: userID, key: key}, func() {
		delete(f.rows[userID], key)
	})
}

func (f *fakeCartStore) write(ctx context.Context, op cartOp, apply func()) error {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay != nil {
		select {
		case <-time.After(delay(op)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	if f.err != nil {
		return f.err
	}
	apply()
	return nil
}

// --- Profile store ---

type fakeProfileStore struct {
	mu        sync.Mutex
	profiles  map[string]*domain.UserProfile
	getErr    error
	createErr error
	updateErr error
	creates   int
	updates   int
	afterGet  func()
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.UserProfile)}
}

func (f *fakeProfileStore) stored(userID string) *domain.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID].Clone()
}

func (f *fakeProfileStore) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	f.mu.Lock()
	after := f.afterGet
	f.mu.Unlock()
	if after != nil {
		defer after()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return p.Clone(), nil
}

func (f *fakeProfileStore) Create(_ context.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if existing, ok := f.profiles[p.UserID]; ok {
		p.NonEmptyPatch().ApplyTo(existing)
		return existing.Clone(), nil
	}
	f.profiles[p.UserID] = p.Clone()
	return p.Clone(), nil
}

func (f *fakeProfileStore) Update(_ context.Context, userID string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		p = &domain.UserProfile{UserID: userID}
		f.profiles[userID] = p
	}
	patch.ApplyTo(p)
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}

func (f *fakeProfileStore) Delete(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.profiles[userID]
	delete(f.profiles, userID)
	return ok, nil
}

// --- Fallback store ---

type memFallback struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemFallback() *memFallback {
	return &memFallback{data: make(map[string][]byte)}
}

func (m *memFallback) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memFallback) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memFallback) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Builders ---

func newTestMirror(store *fakeCartStore, metrics *observability.Metrics) *service.Mirror {
	return service.NewMirror(store, resilience.NewBulkhead(4), time.Second, metrics, zap.NewNop())
}

func newTestCart(session *fakeSession, store *fakeCartStore) (*service.CartEngine, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return service.NewCartEngine(session, store, newTestMirror(store, metrics), metrics, zap.NewNop()), metrics
}

func newTestProfile(session *fakeSession, remote *fakeProfileStore, local *memFallback) (*service.ProfileEngine, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return service.NewProfileEngine(session, remote, local, metrics, zap.NewNop()), metrics
}
