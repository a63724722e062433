// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/groups", "200").Inc()
//	metrics.ActivityEntriesTotal.WithLabelValues("group.created").Inc()
//
// Business metrics:
//
//	metrics.GroupsTotal.Set(float64(count))
//	metrics.SessionsActive.Set(float64(sessions))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//	fmt.Printf("Healthy: %v\n", status.Healthy)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
//		Enabled:     true,
//		ServiceName: "tally-api",
//		Endpoint:    "otel-collector:4317",
//	}, logger)
//	defer telemetry.Shutdown(ctx, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging and rate limiting middleware
package observability
