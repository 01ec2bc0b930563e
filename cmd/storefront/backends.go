package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/guloona/storefront-bff-go/internal/config"
	"github.com/guloona/storefront-bff-go/internal/handler"
	"github.com/guloona/storefront-bff-go/internal/infra/firestore"
	"github.com/guloona/storefront-bff-go/internal/infra/localstore"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"
	"github.com/guloona/storefront-bff-go/internal/infra/supabase"
	"github.com/guloona/storefront-bff-go/internal/port"

	"go.uber.org/zap"
)

// backends are the stores selected by the configuration.
type backends struct {
	carts    port.CartStore
	profiles port.ProfileStore
	local    *localstore.Store
	probes   []handler.Probe
	closers  []func() error
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		return nil, err
	}
	b := &backends{local: local}
	b.closers = append(b.closers, local.Close)
	b.probes = append(b.probes, handler.Probe{Name: "local-store", Check: local.Ping})

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	sb := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilienceCfg,
		logger,
	)
	b.carts = supabase.NewCartStore(sb)
	b.probes = append(b.probes, handler.Probe{Name: "supabase", Check: sb.Ping})

	switch cfg.ProfileBackend {
	case config.BackendSupabase:
		b.profiles = supabase.NewProfileStore(sb)
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			b.close(logger)
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.profiles = firestore.NewProfileStore(client, resilience.NewCircuitBreaker("firestore"), resilienceCfg, logger)
	case config.BackendLocal:
		b.profiles = localstore.NewProfileStore(local)
	default:
		b.close(logger)
		return nil, fmt.Errorf("unknown profile backend %q", cfg.ProfileBackend)
	}

	logger.Info("backends ready",
		zap.String("supabase_url", cfg.SupabaseURL),
		zap.String("profile_backend", cfg.ProfileBackend),
		zap.String("local_store", cfg.LocalStorePath),
	)
	return b, nil
}

func (b *backends) close(logger *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("closing backend failed", zap.Error(err))
		}
	}
}
