package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/warden/pkg/api"
	"github.com/platinummonkey/warden/pkg/apikeys"
	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/automation"
	"github.com/platinummonkey/warden/pkg/config"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/integrations"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/rbac"
	"github.com/platinummonkey/warden/pkg/sessions"
	"github.com/platinummonkey/warden/pkg/settings"
	"github.com/platinummonkey/warden/pkg/webhooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	accessLog := logrus.New()
	accessLog.SetOutput(os.Stdout)
	accessLog.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevelName); err == nil {
		accessLog.SetLevel(level)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	auditLog, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = auditLog.Migrate(migrateCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to migrate audit schema: %w", err)
	}

	var redisClient *redis.Client
	var basePublisher events.Publisher
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		basePublisher = events.NewRedisPublisher(redisClient, events.DefaultStream, 100000)
		log.WithField("addr", cfg.Redis.Addr).Info("publishing events to redis stream")
	} else {
		basePublisher = events.NewLogPublisher(log)
		log.Warn("no redis address configured, events will only be logged")
	}

	// Permission evaluation
	rbacStore := rbac.NewStore(db)
	checker, err := rbac.NewPermissionChecker(rbacStore, cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	checker.SetMetrics(metrics)

	// Webhook delivery
	webhookStore := webhooks.NewStore(db)
	sender := webhooks.NewSender(cfg.Outbound.WebhookTimeout, metrics)
	dispatcher := webhooks.NewDispatcher(webhookStore, sender, log)

	// Automation engine
	automationStore := automation.NewStore(db)
	engine := automation.NewEngine(log)
	registerActions(engine, dispatcher, log)

	// Every domain event fans out to subscribed webhooks and enabled
	// automation rules after it is published.
	automationService := automation.NewService(automationStore, engine, auditLog, basePublisher, log)
	publisher := newFanout(basePublisher, dispatcher, automationService, log)

	services := api.Services{
		Settings:     settings.NewService(settings.NewStore(db), auditLog, publisher, log),
		APIKeys:      apikeys.NewService(apikeys.NewStore(db), auditLog, publisher, log),
		Integrations: integrations.NewService(integrations.NewStore(db), auditLog, publisher, log),
		Webhooks:     webhooks.NewService(webhookStore, sender, auditLog, publisher, log),
		Automation:   automationService,
		Roles:        rbac.NewService(rbacStore, checker, auditLog, publisher, log),
		Sessions:     sessions.NewService(sessions.NewStore(db), auditLog, publisher, log),
	}

	for _, provider := range []string{"slack", "pagerduty", "jira", "datadog"} {
		services.Integrations.RegisterConnector(
			integrations.NewHTTPConnector(provider, cfg.Outbound.ConnectorTimeout, metrics))
	}

	var limiter *middleware.DistributedRateLimiter
	if redisClient != nil {
		limiter = middleware.NewDistributedRateLimiter(redisClient, nil, log)
	}

	server := api.NewServer(services, checker, limiter, metrics, accessLog, log)

	// Background jobs
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Sessions.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		swept, err := services.Sessions.CleanupExpiredSessions(ctx)
		if err != nil {
			log.WithError(err).Error("session sweep failed")
			return
		}
		metrics.SessionsSweptTotal.Add(float64(swept))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	_, err = scheduler.AddFunc("@every 30s", func() {
		metrics.CollectDBStats(db)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule db stats collection: %w", err)
	}
	scheduler.Start()

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		<-scheduler.Stop().Done()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("health server shutdown failed")
		}
		publisher.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

// registerActions wires the built-in automation action handlers
func registerActions(engine *automation.Engine, dispatcher *webhooks.Dispatcher, log *observability.Logger) {
	engine.RegisterAction("log", func(ctx context.Context, params map[string]string, input map[string]interface{}) (string, error) {
		log.WithFields(map[string]interface{}{
			"message": params["message"],
			"input":   input,
		}).Info("automation rule triggered")
		return "logged", nil
	})

	engine.RegisterAction("notify_webhooks", func(ctx context.Context, params map[string]string, input map[string]interface{}) (string, error) {
		orgID, ok := organizationID(input)
		if !ok {
			return "", fmt.Errorf("input carries no organization id")
		}
		eventName := params["event"]
		if eventName == "" {
			eventName = "automation.notification"
		}
		if err := dispatcher.Dispatch(ctx, orgID, eventName, input); err != nil {
			return "", err
		}
		return "dispatched " + eventName, nil
	})
}

func organizationID(input map[string]interface{}) (int64, bool) {
	switch v := input["organization_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
