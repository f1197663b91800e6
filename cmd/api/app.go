package main

import (
	"context"
	"fmt"

	"campaign-escrow/config"
	"campaign-escrow/internal/adapter/messaging"
	pgStorage "campaign-escrow/internal/adapter/storage/postgres"
	redisStorage "campaign-escrow/internal/adapter/storage/redis"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/internal/service"
	"campaign-escrow/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds everything both subcommands need.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	pool      *pgxpool.Pool
	rdb       *goredis.Client
	publisher ports.EventPublisher
	verifier  *service.HMACSignatureVerifier
	logs      *service.WebhookLogServiceImpl
	processor *service.WebhookProcessorImpl
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	a := &app{cfg: cfg, log: log}

	if !cfg.Webhook.Verified() {
		log.Warn().Msg("webhook secret not set: running in UNVERIFIED mode, signatures are not checked")
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.rdb = rdb
	log.Info().Msg("Redis connected")

	if cfg.Kafka.Enabled() {
		kp, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	} else {
		a.publisher = messaging.NewLoggingPublisher(logger.Component(log, "events"))
	}

	// Repositories
	escrowRepo := pgStorage.NewEscrowRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	webhookLogRepo := pgStorage.NewWebhookLogRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Services
	a.verifier = service.NewHMACSignatureVerifier(cfg.Webhook.Secret)
	a.logs = service.NewWebhookLogService(webhookLogRepo, logger.Component(log, "webhook_log"))
	ledger := service.NewRevenueLedger(pgStorage.NewRevenueRepo(), cfg.Escrow.PlatformFeePercent, cfg.Escrow.Currency, logger.Component(log, "revenue"))
	notifier := service.NewNotificationEmitter(pgStorage.NewNotificationRepo(), logger.Component(log, "notifications"))
	reconciler := service.NewEscrowReconciler(
		escrowRepo,
		payoutRepo,
		ledger,
		notifier,
		a.publisher,
		transactor,
		logger.Component(log, "reconciler"),
	)
	a.processor = service.NewWebhookProcessor(
		a.logs,
		reconciler,
		redisStorage.NewEventDedupCache(rdb),
		cfg.Webhook.DedupTTL,
		logger.Component(log, "webhooks"),
	)

	return a, nil
}

// Close releases the publisher, Redis client and DB pool, in that order.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
