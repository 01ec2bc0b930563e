package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// SyncMetrics is returned by GET /v1/metrics/sync.
type SyncMetrics struct {
	MirrorSuccess   int64   `json:"mirrorSuccess"`
	MirrorFailures  int64   `json:"mirrorFailures"`
	MirrorErrorRate float64 `json:"mirrorErrorRate"`
	ProfileRemote   int64   `json:"profileRemote"`
	ProfileLocal    int64   `json:"profileLocal"`
	ProfileCreated  int64   `json:"profileCreated"`
	LocalFallbacks  int64   `json:"localFallbacks"`
	GatedMutations  int64   `json:"gatedMutations"`
	ActiveSessions  int64   `json:"activeSessions"`
	Period          string  `json:"period"`
}
