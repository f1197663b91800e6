package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpHandler "campaign-escrow/internal/adapter/http/handler"
	"campaign-escrow/internal/adapter/http/middleware"
	pgStorage "campaign-escrow/internal/adapter/storage/postgres"
	redisStorage "campaign-escrow/internal/adapter/storage/redis"
	"campaign-escrow/internal/core/ports"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("verified", cfg.Webhook.Verified()).
		Msg("Starting campaign escrow service")

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Processor:      a.processor,
		Verifier:       a.verifier,
		RateLimitStore: redisStorage.NewRateLimitStore(a.rdb),
		RateLimit: middleware.RateLimitRule{
			Limit:  int64(cfg.Webhook.RateLimit),
			Window: cfg.Webhook.RateWindow,
		},
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(a.pool),
			redisStorage.NewHealthCheck(a.rdb),
		},
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
