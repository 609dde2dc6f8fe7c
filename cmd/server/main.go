package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"consentd/internal/audit"
	"consentd/internal/auth"
	"consentd/internal/consent"
	"consentd/internal/jwttoken"
	"consentd/internal/kba"
	"consentd/internal/notify"
	"consentd/internal/platform/config"
	"consentd/internal/platform/httpserver"
	"consentd/internal/platform/logger"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/postgres"
	"consentd/internal/platform/redis"
	"consentd/internal/provider"
	"consentd/internal/roster"
	httptransport "consentd/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies explicitly and keeps the lifecycle small.
// Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	m := metrics.New()
	ctx := context.Background()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores: postgres when configured, in-memory otherwise.
	var (
		rosterStore   roster.Store   = roster.NewInMemoryStore()
		providerStore provider.Store = provider.NewInMemoryStore()
		attemptStore  kba.Store      = kba.NewInMemoryStore()
		consentStore  consent.Store  = consent.NewInMemoryStore()
		auditStore    audit.Store    = audit.NewInMemoryStore()
	)
	if db != nil {
		rosterStore = roster.NewPostgresStore(db)
		providerStore = provider.NewPostgresStore(db)
		attemptStore = kba.NewPostgresStore(db)
		consentStore = consent.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	}

	var tokenStore auth.TokenStore = auth.NewInMemoryTokenStore()
	if redisClient != nil {
		tokenStore = auth.NewRedisTokenStore(redisClient)
	}

	if err := roster.Seed(ctx, rosterStore); err != nil {
		return err
	}
	if err := provider.Seed(ctx, providerStore); err != nil {
		return err
	}

	auditOpts := []audit.Option{audit.WithStrict(cfg.AuditStrict)}
	var worker *audit.Worker
	var publisher *audit.KafkaPublisher
	if cfg.KafkaBrokers != "" {
		publisher, err = audit.NewKafkaPublisher(cfg.KafkaBrokers, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		inbox := make(chan audit.Entry, 256)
		auditOpts = append(auditOpts, audit.WithFanout(inbox))
		worker = audit.NewWorker(publisher, inbox, log, m)
	}
	auditor := audit.NewService(auditStore, log, m, auditOpts...)

	kbaService, err := kba.New(rosterStore, attemptStore, auditor, log, m,
		kba.WithConfig(kba.Config{MaxAttempts: cfg.MaxKBAAttempts, LockoutWindow: cfg.LockoutWindow}))
	if err != nil {
		return err
	}

	consentService, err := consent.New(consentStore, providerStore, auditor, log, m,
		consent.WithDefaultConsented(cfg.ConsentDefaultOptedIn))
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	if !cfg.UseMockNotifier {
		log.Warn("no real notifier configured, falling back to mock")
	}
	notifier := notify.NewMockNotifier(log)

	authService, err := auth.New(rosterStore, tokenStore, jwtService, notifier, auditor, log,
		auth.WithTokenTTL(cfg.TokenExpiration),
		auth.WithBaseURL(cfg.VerificationBaseURL))
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		KBA:           kbaService,
		Consent:       consentService,
		Providers:     providerStore,
		Auth:          authService,
		Audit:         auditor,
		Metrics:       m,
		Validator:     jwtService,
		HealthSummary: cfg.Summary(),
	})
	srv := httpserver.New(cfg.Addr, router)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Info("starting consentd",
			"addr", cfg.Addr,
			"environment", cfg.Environment,
			"postgres", db != nil,
			"redis", redisClient != nil,
			"kafka", publisher != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
