package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/prefs"
	"github.com/chasegan/kalixlint/pkg/schema"
	"github.com/chasegan/kalixlint/pkg/validation"
)

func main() {
	// Parse command line flags
	file := flag.String("file", "", "Validate a single model file and exit")
	watchDir := flag.String("watch", "", "Watch a directory for model file changes")
	serveAddr := flag.String("serve", "", "Serve metrics, health, and stats on this address (e.g. :8080)")
	schemaPath := flag.String("schema", "", "Path to a custom validation schema")
	prefsPath := flag.String("prefs", "", "Path to the preferences file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP gRPC endpoint for tracing (disabled when empty)")
	statsSchedule := flag.String("stats-schedule", "@every 1m", "Cron schedule for logging pipeline stats")
	flag.Parse()

	if *file == "" && *watchDir == "" && *serveAddr == "" {
		fmt.Fprintln(os.Stderr, "usage: kalixlint -file <model.ini> | -watch <dir> [-serve <addr>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	appLog := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		appLog.SetLevel(lvl)
	}

	logger := observability.NewLogger(parseLevel(*logLevel), os.Stderr)

	store := openPreferences(*prefsPath, appLog)
	schemas := schema.NewManager(store, logger)
	if *schemaPath != "" {
		schemas.UpdatePreferences(true, *schemaPath, schemas.DisabledRules())
	}
	schemas.Initialize()
	if schemas.FallbackActive() {
		appLog.Warn("custom schema failed to load, using built-in default")
	}
	appLog.Infof("schema %s loaded (%d rules)", schemas.SchemaVersion(), ruleCount(schemas))

	metrics := observability.NewMetrics(nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *otelEndpoint != "" {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			Enabled:        true,
			Endpoint:       *otelEndpoint,
			ServiceName:    "kalixlint",
			ServiceVersion: version,
			Insecure:       true,
		}, logger)
		if err != nil {
			appLog.WithError(err).Warn("tracing disabled")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				observability.ShutdownTracing(shutdownCtx, tp, logger)
			}()
		}
	}

	orch := validation.NewOrchestrator(validation.DefaultConfig(), schemas, nil, metrics, logger)
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := orch.Dispose(disposeCtx); err != nil {
			appLog.WithError(err).Warn("pipeline did not stop cleanly")
		}
	}()

	// One-shot mode validates synchronously and exits.
	if *file != "" {
		os.Exit(validateFile(orch, *file, appLog))
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*statsSchedule, func() { logStats(orch, appLog) }); err != nil {
		log.Fatalf("Invalid stats schedule %q: %v", *statsSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if *serveAddr != "" {
		srv := newStatusServer(*serveAddr, orch, schemas, metrics)
		go func() {
			appLog.Infof("status server listening on %s", *serveAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("status server failed")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if *watchDir != "" {
		if err := watchModels(ctx, *watchDir, orch, logger, appLog); err != nil {
			log.Fatalf("Failed to watch %s: %v", *watchDir, err)
		}
		return
	}

	<-ctx.Done()
}

var version = "dev"

func parseLevel(s string) observability.LogLevel {
	switch s {
	case "debug":
		return observability.DebugLevel
	case "warn":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// openPreferences opens the YAML preference store, falling back to an
// in-memory store when the file location is unusable.
func openPreferences(path string, appLog *logrus.Logger) prefs.Store {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			appLog.WithError(err).Warn("no home directory, preferences will not persist")
			return prefs.NewMemoryStore()
		}
		path = filepath.Join(home, ".kalixlint", "preferences.yaml")
	}
	store, err := prefs.NewFileStore(path)
	if err != nil {
		appLog.WithError(err).Warnf("cannot open %s, preferences will not persist", path)
		return prefs.NewMemoryStore()
	}
	return store
}

func ruleCount(schemas *schema.Manager) int {
	if s := schemas.CurrentSchema(); s != nil {
		return s.RuleCount()
	}
	return 0
}

// validateFile runs a synchronous validation of one file and prints its
// diagnostics. Returns the process exit code.
func validateFile(orch *validation.Orchestrator, path string, appLog *logrus.Logger) int {
	content, err := os.ReadFile(path)
	if err != nil {
		appLog.WithError(err).Errorf("cannot read %s", path)
		return 1
	}

	l := orch.Linter()
	l.SetBaseDir(filepath.Dir(path))
	result := l.Validate(string(content))

	for _, d := range result.Diagnostics {
		fmt.Printf("%s:%d: %s: %s [%s]\n", path, d.Line, d.Severity, d.Message, d.Rule)
	}
	if result.HasErrors() {
		appLog.Infof("%s: %d error(s), %d warning(s)", path, len(result.Errors()), len(result.Warnings()))
		return 1
	}
	appLog.Infof("%s: ok (%d warning(s))", path, len(result.Warnings()))
	return 0
}

func logStats(orch *validation.Orchestrator, appLog *logrus.Logger) {
	stats := orch.Stats()
	appLog.WithFields(logrus.Fields{
		"validations":  stats.TotalValidations,
		"incremental":  stats.IncrementalValidations,
		"cache_hits":   stats.Cache.Hits,
		"hit_ratio":    fmt.Sprintf("%.2f", stats.Cache.HitRatio),
		"avg_duration": stats.AverageDuration.String(),
		"heap_used":    stats.Memory.HeapUsed,
		"pressure":     fmt.Sprintf("%.2f", stats.Memory.Pressure),
	}).Info("pipeline stats")
}
