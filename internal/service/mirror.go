package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"
	"github.com/guloona/storefront-bff-go/internal/port"

	"go.uber.org/zap"
)

// Mirror operation names, used as metric labels.
const (
	MirrorUpsert = "upsert"
	MirrorDelete = "delete"
)

// DefaultMirrorTimeout bounds one remote write, retries included.
const DefaultMirrorTimeout = 10 * time.Second

type mirrorJob struct {
	op     string
	userID string
	line   domain.CartLine
}

func (j mirrorJob) key() string {
	return fmt.Sprintf("%s|%d|%s", j.userID, j.line.ProductID, j.line.Size)
}

// Mirror propagates cart mutations to the remote cart store in the
// background. Writes for the same (user, product, size) run one at a time in
// issuance order; writes for different keys run concurrently up to the
// bulkhead limit. Failures are logged and counted, never returned.
type Mirror struct {
	store    port.CartStore
	bulkhead *resilience.Bulkhead
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	queues  map[string][]mirrorJob
	pending int
	idle    chan struct{}
}

// NewMirror creates a mirror. The bulkhead may be shared between mirrors to
// bound remote writes process-wide.
func NewMirror(store port.CartStore, bulkhead *resilience.Bulkhead, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Mirror {
	if timeout <= 0 {
		timeout = DefaultMirrorTimeout
	}
	idle := make(chan struct{})
	close(idle)
	return &Mirror{
		store:    store,
		bulkhead: bulkhead,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
		queues:   make(map[string][]mirrorJob),
		idle:     idle,
	}
}

// Upsert schedules an upsert of line for userID.
func (m *Mirror) Upsert(userID string, line domain.CartLine) {
	m.enqueue(mirrorJob{op: MirrorUpsert, userID: userID, line: line})
}

// Delete schedules removal of the line identified by key for userID.
func (m *Mirror) Delete(userID string, key domain.LineKey) {
	m.enqueue(mirrorJob{op: MirrorDelete, userID: userID, line: domain.CartLine{ProductID: key.ProductID, Size: key.Size}})
}

// Wait blocks until every scheduled write has finished or ctx is done.
func (m *Mirror) Wait(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of writes not yet finished.
func (m *Mirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *Mirror) enqueue(job mirrorJob) {
	k := job.key()

	m.mu.Lock()
	if m.pending == 0 {
		m.idle = make(chan struct{})
	}
	m.pending++
	q, running := m.queues[k]
	m.queues[k] = append(q, job)
	m.mu.Unlock()

	if !running {
		go m.drain(k)
	}
}

// drain runs the queued jobs of one key until the queue is empty.
func (m *Mirror) drain(k string) {
	for {
		m.mu.Lock()
		q := m.queues[k]
		if len(q) == 0 {
			delete(m.queues, k)
			m.mu.Unlock()
			return
		}
		job := q[0]
		m.mu.Unlock()

		m.run(job)

		m.mu.Lock()
		m.queues[k] = m.queues[k][1:]
		m.pending--
		if m.pending == 0 {
			close(m.idle)
		}
		m.mu.Unlock()
	}
}

func (m *Mirror) run(job mirrorJob) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	err := m.bulkhead.Acquire(ctx)
	if err == nil {
		switch job.op {
		case MirrorUpsert:
			err = m.store.Upsert(ctx, job.userID, job.line)
		case MirrorDelete:
			err = m.store.Delete(ctx, job.userID, job.line.Key())
		}
		m.bulkhead.Release()
	}

	m.metrics.RecordDuration("cart_mirror_"+job.op, time.Since(start))
	m.metrics.IncrMirror(job.op, err)
	if err != nil {
		m.metrics.IncrExternalError("cart_store")
		m.logger.Warn("cart mirror failed",
			zap.String("op", job.op),
			zap.String("user_id", job.userID),
			zap.Int("product_id", job.line.ProductID),
			zap.String("size", job.line.Size),
			zap.Int("quantity", job.line.Quantity),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("cart mirrored",
		zap.String("op", job.op),
		zap.String("user_id", job.userID),
		zap.Int("product_id", job.line.ProductID),
		zap.String("size", job.line.Size),
	)
}
