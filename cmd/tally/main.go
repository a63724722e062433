package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tallyhq/tally/pkg/activity"
	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/config"
	"github.com/tallyhq/tally/pkg/contextkeys"
	"github.com/tallyhq/tally/pkg/groups"
	"github.com/tallyhq/tally/pkg/middleware"
	"github.com/tallyhq/tally/pkg/observability"
	"github.com/tallyhq/tally/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize telemetry")
		os.Exit(1)
	}

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}

	redisClient, err := postgres.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}

	users := auth.NewPostgresProvider(db)
	groupService := groups.NewPostgresService(db)
	if err := users.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Error("failed to ensure users schema")
		os.Exit(1)
	}
	if err := groupService.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Error("failed to ensure groups schema")
		os.Exit(1)
	}
	activityStore, err := activity.NewDBStore(db)
	if err != nil {
		logger.WithError(err).Error("failed to initialize activity store")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	postgres.StartPoolMetrics(ctx, db, metrics, 0)

	recorder := activity.NewRecorder(activityStore, logger, metrics.ActivityWriteFailuresTotal)
	sessions := auth.NewRedisSessionStore(redisClient)

	router := mux.NewRouter()
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(requestContextMiddleware(logger))
	router.Use(observability.HTTPMetricsMiddleware(metrics))

	authMW := middleware.NewAuthMiddleware(sessions, users, false)
	router.Use(authMW.Handler)

	if cfg.RateLimit.Enabled {
		rlCfg := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Limit,
			WindowDuration:    cfg.RateLimit.Window,
			FallbackSize:      cfg.RateLimit.FallbackSize,
		}
		limiter := middleware.NewRedisRateLimiter(redisClient, rlCfg, "ratelimit")
		router.Use(middleware.NewRateLimitMiddleware(rlCfg, limiter, metrics, logger).Handler)
	}

	groups.NewHandlers(groupService, recorder).RegisterRoutes(router)
	activity.NewHandlers(activityStore, recorder, groupService).RegisterRoutes(router)

	var apiHandler http.Handler = router
	if cfg.Observability.OTelEnabled {
		apiHandler = otelhttp.NewHandler(router, "tally-api")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.OnShutdown("telemetry", func(ctx context.Context) error {
		return telemetry.Shutdown(ctx, logger)
	})
	shutdown.OnShutdown("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})
	shutdown.OnShutdown("database", func(ctx context.Context) error {
		return db.Close()
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("tally API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health/metrics server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.Wait)

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

// requestContextMiddleware stamps each request with an ID and a logger so
// downstream handlers and the activity recorder can correlate log lines.
func requestContextMiddleware(logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			ctx = contextkeys.WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
