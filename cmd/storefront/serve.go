package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/guloona/storefront-bff-go/internal/app"
	"github.com/guloona/storefront-bff-go/internal/handler"
	"github.com/guloona/storefront-bff-go/internal/infra/auth"
	"github.com/guloona/storefront-bff-go/internal/infra/cache"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"
	"github.com/guloona/storefront-bff-go/internal/infra/resilience"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("configuration loaded",
				zap.Int("port", cfg.Port),
				zap.String("log_level", cfg.LogLevel),
				zap.String("profile_backend", cfg.ProfileBackend),
				zap.Duration("http_timeout", cfg.HTTPTimeout),
				zap.Duration("mirror_timeout", cfg.MirrorTimeout),
				zap.Duration("session_ttl", cfg.SessionTTL),
				zap.Duration("token_refresh_debounce", cfg.TokenRefreshDebounce),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Int("max_concurrency", cfg.MaxConcurrency),
			)

			// --- Tracing ---
			shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "storefront-bff")
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			defer shutdownTracer(context.Background())

			// --- Metrics ---
			metrics := observability.NewMetrics()

			// --- Stores ---
			b, err := openBackends(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer b.close(logger)

			// --- Sessions ---
			sessions := cache.New[*app.Services](cfg.SessionTTL)
			defer sessions.Stop()
			reg := app.NewRegistry(app.Deps{
				Verifier:        auth.NewTokenVerifier(cfg.SupabaseJWTSecret),
				CartStore:       b.carts,
				ProfileStore:    b.profiles,
				Fallback:        b.local,
				MirrorBulkhead:  resilience.NewBulkhead(cfg.MaxConcurrency),
				MirrorTimeout:   cfg.MirrorTimeout,
				RefreshDebounce: cfg.TokenRefreshDebounce,
				LoadTimeout:     cfg.LoadTimeout,
				Metrics:         metrics,
				Logger:          logger,
			}, sessions)

			// --- Server ---
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      handler.NewRouter(reg, b.probes, metrics, logger),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", zap.Int("port", cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
			}

			// --- Graceful shutdown ---
			logger.Info("server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server forced shutdown", zap.Error(err))
			}
			if err := reg.Drain(shutdownCtx); err != nil {
				logger.Warn("cart writes still pending at exit", zap.Error(err))
			}

			logger.Info("server stopped", zap.Int("open_sessions", reg.Len()))
			return nil
		},
	}
}
