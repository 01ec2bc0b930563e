package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Profile store backends selectable with PROFILE_BACKEND.
const (
	BackendSupabase  = "supabase"
	BackendFirestore = "firestore"
	BackendLocal     = "local"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP client
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	// Resilience
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
	InitialBackoff time.Duration `envconfig:"INITIAL_BACKOFF" default:"100ms"`
	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"50"`

	// Sessions
	MirrorTimeout        time.Duration `envconfig:"MIRROR_TIMEOUT" default:"10s"`
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	TokenRefreshDebounce time.Duration `envconfig:"TOKEN_REFRESH_DEBOUNCE" default:"5s"`
	LoadTimeout          time.Duration `envconfig:"LOAD_TIMEOUT" default:"15s"`

	// Observability
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Supabase
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey    string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseJWTSecret  string `envconfig:"SUPABASE_JWT_SECRET" default:"storefront-dev-secret-change-me"`

	// Profile storage
	ProfileBackend           string `envconfig:"PROFILE_BACKEND" default:"supabase"`
	FirestoreProjectID       string `envconfig:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentialsFile string `envconfig:"FIRESTORE_CREDENTIALS_FILE"`
	LocalStorePath           string `envconfig:"LOCAL_STORE_PATH" default:"storefront.db"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
// The cart always lives in Supabase.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	switch c.ProfileBackend {
	case BackendSupabase, BackendLocal:
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown PROFILE_BACKEND %q", c.ProfileBackend)
	}
	return nil
}
