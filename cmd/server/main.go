package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smp/internal/admin"
	bcmodels "smp/internal/businesscard/models"
	bcservice "smp/internal/businesscard/service"
	"smp/internal/directory"
	"smp/internal/directory/sml"
	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/owner"
	ownerstore "smp/internal/owner/store"
	"smp/internal/platform/config"
	"smp/internal/platform/health"
	"smp/internal/platform/httpserver"
	"smp/internal/platform/logger"
	"smp/internal/platform/metrics"
	"smp/internal/platform/redis"
	rdmodels "smp/internal/redirect/models"
	rdservice "smp/internal/redirect/service"
	sgmetrics "smp/internal/servicegroup/metrics"
	sgmodels "smp/internal/servicegroup/models"
	sgservice "smp/internal/servicegroup/service"
	smmodels "smp/internal/servicemetadata/models"
	smservice "smp/internal/servicemetadata/service"
	"smp/internal/smp/handler"
	smpmetrics "smp/internal/smp/metrics"
	"smp/internal/smp/service"
	"smp/internal/storage"
	"smp/internal/storage/sqlstore"
	"smp/pkg/platform/audit"
	"smp/pkg/platform/audit/publisher"
	auditkafka "smp/pkg/platform/audit/store/kafka"
	auditlog "smp/pkg/platform/audit/store/log"
	auditpostgres "smp/pkg/platform/audit/store/postgres"
	"smp/pkg/platform/audit/store/redisstream"
	"smp/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("smp server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	store, err := storage.Open(ctx, storage.Config{
		Driver:        cfg.Storage.Driver,
		SQLitePath:    cfg.Storage.SQLitePath,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		MongoURI:      cfg.Storage.MongoURI,
		MongoDatabase: cfg.Storage.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	sinks, closeSinks, err := auditSinks(ctx, cfg, log, store, redisClient)
	if err != nil {
		return err
	}
	defer closeSinks()
	auditor := publisher.NewPublisher(sinks,
		publisher.WithAsyncBuffer(cfg.AuditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	normalizer, err := identifier.New(cfg.IdentifierScheme)
	if err != nil {
		return fmt.Errorf("identifier scheme: %w", err)
	}
	policy, err := eventbus.ParseFailurePolicy(cfg.ObserverFailurePolicy)
	if err != nil {
		return fmt.Errorf("observer failure policy: %w", err)
	}
	busOpts := []eventbus.Option{eventbus.WithFailurePolicy(policy), eventbus.WithLogger(log)}

	gateway, err := directoryGateway(cfg.Directory, log)
	if err != nil {
		return err
	}

	metadata, err := smservice.New(storage.NewCollection[smmodels.ServiceMetadata](store, "service_metadata"),
		smservice.WithLogger(log),
		smservice.WithAuditEmitter(auditor),
		smservice.WithEventPublisher(eventbus.New[smmodels.ServiceMetadata](audit.EntityServiceMetadata, busOpts...)),
	)
	if err != nil {
		return err
	}
	redirects, err := rdservice.New(storage.NewCollection[rdmodels.Redirect](store, "redirects"),
		rdservice.WithLogger(log),
		rdservice.WithAuditEmitter(auditor),
		rdservice.WithEventPublisher(eventbus.New[rdmodels.Redirect](audit.EntityRedirect, busOpts...)),
	)
	if err != nil {
		return err
	}
	groupEvents := eventbus.New[sgmodels.ServiceGroup](audit.EntityServiceGroup, busOpts...)
	groups, err := sgservice.New(storage.NewCollection[sgmodels.ServiceGroup](store, "service_groups"), gateway,
		sgservice.WithLogger(log),
		sgservice.WithAuditEmitter(auditor),
		sgservice.WithMetrics(sgmetrics.New(nil)),
		sgservice.WithEventPublisher(groupEvents),
		sgservice.WithDependents(metadata, redirects),
	)
	if err != nil {
		return err
	}
	counters := map[string]admin.Counter{
		"service_groups":   groups,
		"service_metadata": metadata,
		"redirects":        redirects,
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(smpmetrics.New(nil)),
		service.WithPublicURL(cfg.PublicURL),
	}
	if cfg.BusinessCardsEnabled {
		cards, err := bcservice.New(storage.NewCollection[bcmodels.BusinessCard](store, "business_cards"),
			bcservice.WithLogger(log),
			bcservice.WithAuditEmitter(auditor),
			bcservice.WithEventPublisher(eventbus.New[bcmodels.BusinessCard](audit.EntityBusinessCard, busOpts...)),
		)
		if err != nil {
			return err
		}
		cards.SubscribeTo(groupEvents)
		svcOpts = append(svcOpts, service.WithBusinessCards(cards))
		counters["business_cards"] = cards
	}

	users := ownerstore.NewInMemory()
	if cfg.UsersFile != "" {
		if users, err = ownerstore.LoadFile(cfg.UsersFile); err != nil {
			return err
		}
	} else {
		log.Warn("no users file configured, every authenticated operation will be rejected")
	}
	auth, err := owner.NewAuthenticator(users, owner.WithCacheTTL(cfg.CredentialCacheTTL), owner.WithLogger(log))
	if err != nil {
		return err
	}

	smp, err := service.New(normalizer, groups, metadata, redirects, auth, svcOpts...)
	if err != nil {
		return err
	}

	checkers := map[string]health.Checker{"storage": health.CheckerFunc(store.Ping)}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", health.Handler(checkers, 2*time.Second))
	if cfg.AdminToken != "" {
		admin.New(counters, users, cfg.UsersFile, auth, log).Register(r, cfg.AdminToken)
	}
	handler.New(smp, log, metrics.New(nil), cfg.RequestTimeout).Register(r)

	log.Info("starting smp server",
		"addr", cfg.Addr,
		"storage", cfg.Storage.Driver,
		"directory_enabled", cfg.Directory.Enabled,
	)
	srv := httpserver.New(cfg.Addr, r, httpserver.WithWriteTimeout(cfg.RequestTimeout+5*time.Second))
	return httpserver.Run(ctx, srv, nil, cfg.ShutdownTimeout, log)
}

func directoryGateway(cfg config.DirectoryConfig, log *slog.Logger) (directory.Gateway, error) {
	if !cfg.Enabled {
		log.Info("directory synchronization disabled")
		return directory.Noop{}, nil
	}
	breaker := circuit.New("sml",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCoolDown(cfg.CoolDown),
	)
	client, err := sml.New(sml.Config{
		URL:            cfg.URL,
		SMPID:          cfg.SMPID,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}, sml.WithBreaker(breaker), sml.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}
	return directory.NewInstrumented(client, directory.NewMetrics(nil)), nil
}

// auditSinks builds the fan-out of audit stores: always the log, plus the
// postgres table, a redis stream and a kafka topic when configured.
func auditSinks(ctx context.Context, cfg config.Server, log *slog.Logger, store storage.DocumentStore, redisClient *redis.Client) (audit.MultiStore, func(), error) {
	sinks := audit.MultiStore{auditlog.New(log)}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if sqlStore, ok := store.(*sqlstore.Store); ok && cfg.Storage.Driver == storage.DriverPostgres {
		pg, err := auditpostgres.New(ctx, sqlStore.DB())
		if err != nil {
			return nil, nil, fmt.Errorf("audit postgres sink: %w", err)
		}
		sinks = append(sinks, pg)
	}
	if redisClient != nil {
		sinks = append(sinks, redisstream.New(redisClient.Client, redisstream.WithStream(cfg.Redis.Stream)))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := auditkafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		if err := auditkafka.EnsureTopic(ctx, client, cfg.Kafka.AuditTopic); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, auditkafka.New(client, cfg.Kafka.AuditTopic))
	}
	return sinks, closeAll, nil
}
