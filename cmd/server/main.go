package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"doccenter/internal/admin"
	httpapi "doccenter/internal/http"
	jwttoken "doccenter/internal/jwt_token"
	lendinghandler "doccenter/internal/lending/handler"
	"doccenter/internal/lending/idempotency"
	lendingmetrics "doccenter/internal/lending/metrics"
	"doccenter/internal/lending/ports"
	"doccenter/internal/lending/service"
	"doccenter/internal/lending/sweeper"
	"doccenter/internal/notification"
	notificationhandler "doccenter/internal/notification/handler"
	"doccenter/internal/platform/config"
	"doccenter/internal/platform/httpserver"
	"doccenter/internal/platform/logger"
	"doccenter/internal/platform/metrics"
	"doccenter/internal/platform/middleware"
	platformredis "doccenter/internal/platform/redis"
	"doccenter/internal/platform/tracing"
	"doccenter/internal/store"
	"doccenter/pkg/email"
	"doccenter/pkg/platform/outbox"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	serviceName                = "doccenter"
	serviceVersion             = "1.0.0"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp, err := tracing.Setup(ctx, cfg.Tracing, serviceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	backend, err := store.Open(ctx, cfg.Database, log, true)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	guard, closeGuard, err := newGuard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGuard()

	dispatcher := notification.NewDispatcher(
		notification.Config{
			DueSoonWindow: cfg.Lending.DueSoonWindow,
			OverdueWindow: cfg.Lending.OverdueWindow,
			CenterEmail:   cfg.Mail.CenterEmail,
		},
		notification.WithLogger(log),
		notification.WithMailer(newMailer(cfg.Mail, log)),
		notification.WithMetrics(notification.NewMetrics(reg)),
	)

	lm := lendingmetrics.New(reg)
	lending := service.New(backend, guard, dispatcher,
		service.WithLogger(log),
		service.WithMetrics(lm),
		service.WithTracer(tp.Tracer("doccenter/lending")),
		service.WithIdempotencyWindow(cfg.Lending.IdempotencyWindow),
	)
	sw := sweeper.New(backend, dispatcher,
		sweeper.WithLogger(log),
		sweeper.WithMetrics(lm),
		sweeper.WithInterval(cfg.Lending.SweepInterval),
		sweeper.WithDueSoonDays(cfg.Lending.DueSoonDays),
	)
	limiter := middleware.NewActorRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log)
	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:        log,
		Metrics:       metrics.New(reg),
		Validator:     jwttoken.NewJWTServiceAdapter(tokens),
		Limiter:       limiter,
		AdminToken:    cfg.Server.AdminToken,
		Health:        backend.Health,
		Lending:       lendinghandler.New(lending, log),
		Notifications: notificationhandler.New(notification.NewService(ports.NotificationTx(backend), log), log),
		Admin:         admin.New(sw, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting doccenter", "addr", cfg.Server.Addr, "store", cfg.Database.Driver)
		return httpserver.Serve(ctx, srv)
	})
	g.Go(func() error {
		return sw.Run(ctx)
	})
	g.Go(func() error {
		return limiter.Cleanup(ctx, rateLimiterCleanupInterval)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		relay, closeRelay, err := newRelay(ctx, cfg.Kafka, backend, reg, log)
		if err != nil {
			return err
		}
		defer closeRelay()
		g.Go(func() error {
			return relay.Run(ctx)
		})
	} else {
		log.Warn("no kafka brokers configured, audit outbox is not relayed")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newGuard(ctx context.Context, cfg config.Config, log *slog.Logger) (idempotency.Guard, func(), error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Info("idempotency guard kept in process")
		return idempotency.NewMemoryGuard(), func() {}, nil
	}
	log.Info("idempotency guard backed by redis")
	return idempotency.NewRedisGuard(client.Client), func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}, nil
}

func newMailer(cfg config.Mail, log *slog.Logger) notification.Mailer {
	if cfg.SMTPHost == "" {
		log.Info("smtp host not configured, emails are disabled")
		return notification.NopMailer{}
	}
	return email.NewSMTPSender(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

func newRelay(ctx context.Context, cfg config.Kafka, source outbox.Source, reg prometheus.Registerer, log *slog.Logger) (*outbox.Relay, func(), error) {
	client, err := outbox.NewKafkaClient(cfg.Brokers, "doccenter-relay")
	if err != nil {
		return nil, nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := outbox.EnsureTopic(ctx, client, cfg.AuditTopic, 3, 1); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ensure topic %s: %w", cfg.AuditTopic, err)
	}
	relay := outbox.NewRelay(source, outbox.NewKafkaProducer(client, cfg.AuditTopic),
		outbox.WithLogger(log),
		outbox.WithInterval(cfg.RelayInterval),
		outbox.WithBatchSize(cfg.RelayBatch),
		outbox.WithRegisterer(reg),
	)
	return relay, client.Close, nil
}
