// Package observability provides logging, metrics, tracing, and health checks
// for the validation pipeline.
//
// # Overview
//
// This package wires the pipeline's diagnostics surface: structured JSON
// logging via slog, Prometheus metrics for validations, cache behavior,
// executor occupancy and memory pressure, optional OpenTelemetry tracing of
// validation runs, and HTTP health endpoints for the watch daemon.
//
// # Components
//
// Logger: leveled structured logger with field chaining
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("document", path).Info("validation completed")
//
// Metrics: Prometheus collectors plus an HTTP handler
//
//	metrics := observability.NewMetrics(nil)
//	http.Handle("/metrics", metrics.Handler())
//
// Tracing: opt-in OTLP trace export
//
//	tp, err := observability.InitTracing(ctx, cfg, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
//
// HealthChecker: liveness and readiness probes over schema and pipeline state
//
// # Related Packages
//
//   - pkg/validation: emits the metrics recorded here
//   - pkg/schema: reports load state to the health checker
package observability
