package observability

import (
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Profile resolution tiers, used as metric labels.
const (
	TierRemote      = "remote"
	TierLocal       = "local"
	TierSynthesized = "synthesized"
)

// Metrics holds all Prometheus metrics for the storefront BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	mirrorOps       *prometheus.CounterVec
	profileTier     *prometheus.CounterVec
	localFallbacks  *prometheus.CounterVec
	gatedMutations  *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_operation_duration_seconds",
				Help:    "Duration of engine and store operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_external_errors_total",
				Help: "Total errors from external stores.",
			},
			[]string{"service"},
		),
		mirrorOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_mirror_total",
				Help: "Cart mirror writes by operation and result.",
			},
			[]string{"op", "result"},
		),
		profileTier: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_profile_resolutions_total",
				Help: "Profile lookups by the tier that resolved them.",
			},
			[]string{"tier"},
		),
		localFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_profile_local_fallback_total",
				Help: "Profile writes demoted to the local fallback store.",
			},
			[]string{"operation"},
		),
		gatedMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_gated_mutations_total",
				Help: "Mutations rejected because nobody was signed in.",
			},
			[]string{"operation"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "storefront_active_sessions",
				Help: "Open storefront sessions.",
			},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrMirror counts a finished cart mirror write.
func (m *Metrics) IncrMirror(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.mirrorOps.WithLabelValues(op, result).Inc()
}

// IncrProfileTier counts a profile resolved at the given tier.
func (m *Metrics) IncrProfileTier(tier string) {
	m.profileTier.WithLabelValues(tier).Inc()
}

// IncrLocalFallback counts a profile write kept local-only.
func (m *Metrics) IncrLocalFallback(operation string) {
	m.localFallbacks.WithLabelValues(operation).Inc()
}

// IncrGated counts a mutation rejected by the sign-in gate.
func (m *Metrics) IncrGated(operation string) {
	m.gatedMutations.WithLabelValues(operation).Inc()
}

// SetActiveSessions sets the open session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// GetSyncSnapshot returns a snapshot of sync-related metrics suitable for the
// GET /v1/metrics/sync endpoint.
func (m *Metrics) GetSyncSnapshot() *domain.SyncMetrics {
	var success, failures float64
	for _, op := range []string{"upsert", "delete"} {
		success += getCounterValue(m.mirrorOps, op, "success")
		failures += getCounterValue(m.mirrorOps, op, "error")
	}

	errorRate := float64(0)
	if success+failures > 0 {
		errorRate = failures / (success + failures)
	}

	var fallbacks float64
	for _, op := range []string{"create", "update"} {
		fallbacks += getCounterValue(m.localFallbacks, op)
	}

	var gated float64
	for _, op := range []string{"add item", "remove item", "update quantity", "update profile", "save custom order"} {
		gated += getCounterValue(m.gatedMutations, op)
	}

	return &domain.SyncMetrics{
		MirrorSuccess:   int64(success),
		MirrorFailures:  int64(failures),
		MirrorErrorRate: errorRate,
		ProfileRemote:   int64(getCounterValue(m.profileTier, TierRemote)),
		ProfileLocal:    int64(getCounterValue(m.profileTier, TierLocal)),
		ProfileCreated:  int64(getCounterValue(m.profileTier, TierSynthesized)),
		LocalFallbacks:  int64(fallbacks),
		GatedMutations:  int64(gated),
		ActiveSessions:  int64(getGaugeValue(m.activeSessions)),
		Period:          "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
