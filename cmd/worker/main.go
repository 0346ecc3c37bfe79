package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/campuswell/counseling-api/internal/config"
	"github.com/campuswell/counseling-api/internal/repository/postgres"
	"github.com/campuswell/counseling-api/pkg/logger"
	"github.com/campuswell/counseling-api/pkg/messaging/redis"
	"github.com/campuswell/counseling-api/pkg/metrics"
	"github.com/campuswell/counseling-api/pkg/notify"
	"github.com/campuswell/counseling-api/pkg/worker"
)

// workerEnv overrides poll cadence and batch sizing per deployment
// without touching the shared config file.
type workerEnv struct {
	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	BreachEmailEnabled  bool          `envconfig:"BREACH_EMAIL_ENABLED" default:"true"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker environment")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := log.Logger
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	lg := logger.NewLogger(nil)
	m := metrics.NewMetrics("counseling", "worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	crisisRepo := postgres.NewCrisisAlertRepository(db)

	var notifier *notify.EmailNotifier
	if env.BreachEmailEnabled && cfg.SMTP.Host != "" {
		notifier = notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		})
	}

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     env.OutboxBatchSize,
		PollInterval:  env.OutboxPollInterval,
		RetryAttempts: env.OutboxRetryAttempts,
		RetryDelay:    env.OutboxRetryDelay,
	}, lg, m)

	escalationWatcher := worker.NewEscalationWatcher(crisisRepo, outboxRepo, notifier, worker.EscalationWatcherConfig{
		PollInterval: cfg.Escalation.PollInterval,
	}, lg, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outboxProcessor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		escalationWatcher.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down workers")

	cancel()
	wg.Wait()
	log.Info().Msg("workers exited")
}
