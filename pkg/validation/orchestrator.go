package validation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// Config tunes the validation pipeline.
type Config struct {
	// CacheSize is the maximum number of cached results.
	CacheSize int
	// CacheTTL is how long a cached result stays valid.
	CacheTTL time.Duration
	// DebounceInterval is how long a debounced submission waits for further
	// edits before running.
	DebounceInterval time.Duration
	// ValidationTimeout bounds a single validation run.
	ValidationTimeout time.Duration
	// LargeContentBytes is the size above which documents take the
	// optimized parse path instead of the incremental one.
	LargeContentBytes int
	// MemoryCheckInterval is how often heap usage is sampled.
	MemoryCheckInterval time.Duration
	// MemoryOptimizeThreshold is the pressure above which a completed
	// validation triggers memory reclamation.
	MemoryOptimizeThreshold float64
}

// DefaultConfig returns the tuning used by the editor integration.
func DefaultConfig() Config {
	return Config{
		CacheSize:               100,
		CacheTTL:                10 * time.Minute,
		DebounceInterval:        300 * time.Millisecond,
		ValidationTimeout:       30 * time.Second,
		LargeContentBytes:       64 * 1024,
		MemoryCheckInterval:     DefaultMemoryCheckInterval,
		MemoryOptimizeThreshold: 0.8,
	}
}

// PipelineStats aggregates counters across the pipeline's components.
type PipelineStats struct {
	TotalValidations       uint64         `json:"total_validations"`
	FullValidations        uint64         `json:"full_validations"`
	IncrementalValidations uint64         `json:"incremental_validations"`
	CacheHitsServed        uint64         `json:"cache_hits_served"`
	AverageDuration        time.Duration  `json:"average_duration"`
	LastDuration           time.Duration  `json:"last_duration"`
	Cache                  CacheStats     `json:"cache"`
	Memory                 MemorySnapshot `json:"memory"`
}

// Orchestrator is the entry point of the validation pipeline. It checks the
// result cache before scheduling work, routes small documents through the
// incremental validator and large ones through the optimized parser, tracks
// latency, and reclaims memory when pressure climbs.
type Orchestrator struct {
	cfg     Config
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	schemas     *schema.Manager
	linter      *linter.Linter
	cache       *ResultCache
	incremental *IncrementalValidator
	executor    *Executor
	monitor     *MemoryMonitor

	mu      sync.Mutex
	current *linter.Result

	totalValidations atomic.Uint64
	fullRuns         atomic.Uint64
	incrementalRuns  atomic.Uint64
	cacheHitsServed  atomic.Uint64
	avgDurationNanos atomic.Int64
	lastDuration     atomic.Int64

	disposed atomic.Bool
}

// NewOrchestrator wires the pipeline together and starts the memory
// monitor. A nil dispatcher delivers callbacks on the worker goroutine.
func NewOrchestrator(cfg Config, schemas *schema.Manager, dispatch Dispatcher, metrics *observability.Metrics, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("kalixlint/validation"),
		schemas: schemas,
	}
	o.linter = linter.New(schemas, logger)
	o.cache = NewResultCache(cfg.CacheSize, cfg.CacheTTL, metrics, logger)
	o.incremental = NewIncrementalValidator(o.linter, logger)
	o.executor = NewExecutor(o.runValidation, cfg.DebounceInterval, cfg.ValidationTimeout, dispatch, metrics, logger)
	o.monitor = NewMemoryMonitor(cfg.MemoryCheckInterval, metrics, logger)
	o.monitor.Start()

	schemas.AddEnabledListener(o.onLintingToggled)
	return o
}

// Linter exposes the underlying linter, for one-shot synchronous use.
func (o *Orchestrator) Linter() *linter.Linter { return o.linter }

// PerformValidation validates content immediately, superseding any pending
// or running validation. Cache hits are delivered synchronously through the
// callback before this returns.
func (o *Orchestrator) PerformValidation(content string, cb Callback) (string, error) {
	return o.submit(content, cb, o.executor.Submit)
}

// PerformValidationWithDebounce schedules validation after the debounce
// interval; rapid successive calls collapse into one run of the latest
// content. Cache hits short-circuit the debounce and deliver synchronously.
func (o *Orchestrator) PerformValidationWithDebounce(content string, cb Callback) (string, error) {
	return o.submit(content, cb, o.executor.SubmitWithDebounce)
}

func (o *Orchestrator) submit(content string, cb Callback, schedule func(string, Callback) (string, error)) (string, error) {
	if o.disposed.Load() {
		return "", ErrDisposed
	}

	if !o.schemas.IsLintingEnabled() {
		id := uuid.NewString()
		cb.OnValidationCompleted(id, linter.NewResult())
		return id, nil
	}

	if result, ok := o.cache.Get(content); ok {
		o.cacheHitsServed.Add(1)
		o.setCurrent(result)
		id := uuid.NewString()
		cb.OnValidationCompleted(id, result)
		return id, nil
	}

	return schedule(content, cb)
}

// runValidation is the executor's work function. The context carries the
// submission's request ID.
func (o *Orchestrator) runValidation(ctx context.Context, content string) (*linter.Result, error) {
	runID := observability.GetRunID(ctx)
	ctx, span := o.tracer.Start(ctx, "validation.run",
		trace.WithAttributes(
			attribute.Int("content.bytes", len(content)),
			attribute.String("validation.request_id", runID),
		))
	defer span.End()

	started := time.Now()
	o.monitor.StartValidationTracking()
	defer o.monitor.EndValidationTracking()

	var result *linter.Result
	var incremental bool
	if len(content) >= o.cfg.LargeContentBytes {
		result = o.linter.ValidateModel(model.ParseOptimized(content))
	} else {
		result, incremental = o.incremental.Validate(content)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.cache.Put(content, result)
	o.recordRun(result, incremental, time.Since(started))
	o.setCurrent(result)
	span.SetAttributes(
		attribute.Bool("validation.incremental", incremental),
		attribute.Int("validation.diagnostics", len(result.Diagnostics)),
	)
	observability.FromContext(ctx).WithFields(map[string]any{
		"incremental": incremental,
		"diagnostics": len(result.Diagnostics),
	}).Debug("validation result recorded")

	o.OptimizeMemoryUsage()
	return result, nil
}

func (o *Orchestrator) recordRun(result *linter.Result, incremental bool, elapsed time.Duration) {
	o.totalValidations.Add(1)
	if incremental {
		o.incrementalRuns.Add(1)
	} else {
		o.fullRuns.Add(1)
	}
	o.lastDuration.Store(int64(elapsed))

	// Running average weighted toward recent runs.
	for {
		avg := o.avgDurationNanos.Load()
		next := int64(elapsed)
		if avg != 0 {
			next = (avg + int64(elapsed)) / 2
		}
		if o.avgDurationNanos.CompareAndSwap(avg, next) {
			break
		}
	}

	if o.metrics != nil {
		o.metrics.ValidationsTotal.WithLabelValues("completed").Inc()
		o.metrics.ValidationDuration.Observe(elapsed.Seconds())
		for _, d := range result.Diagnostics {
			o.metrics.DiagnosticsTotal.WithLabelValues(string(d.Severity)).Inc()
		}
	}
}

func (o *Orchestrator) setCurrent(result *linter.Result) {
	o.mu.Lock()
	o.current = result
	o.mu.Unlock()
}

// CurrentResult returns the most recent successful validation result, or
// nil when none has completed yet. Failed runs keep the previous result.
func (o *Orchestrator) CurrentResult() *linter.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// ClearValidation resets the pipeline: it cancels any pending or in-flight
// validation, drops the cached results and incremental state, and publishes
// an empty result. The next validation runs the full pass.
func (o *Orchestrator) ClearValidation() {
	o.executor.Cancel()
	o.cache.Clear()
	o.incremental.Clear()
	o.setCurrent(linter.NewResult())
}

// SetValidationEnabled persists the enabled flag and reloads preferences.
func (o *Orchestrator) SetValidationEnabled(enabled bool) {
	o.schemas.UpdatePreferences(enabled, o.schemas.SchemaPath(), o.schemas.DisabledRules())
}

func (o *Orchestrator) onLintingToggled(enabled bool) {
	o.logger.WithField("enabled", enabled).Info("linting toggled")
	if !enabled {
		o.ClearValidation()
	}
}

// IsValidationRunning reports whether a validation is in flight.
func (o *Orchestrator) IsValidationRunning() bool {
	return o.executor.IsRunning()
}

// ExecutorState returns the lifecycle state of the latest submission.
func (o *Orchestrator) ExecutorState() State {
	return o.executor.State()
}

// OptimizeMemoryUsage reclaims memory when heap pressure is above the
// configured threshold: it forces a garbage collection and drops the result
// and incremental caches. Below the threshold it does nothing, so callers
// can invoke it freely; it reports whether reclamation ran.
func (o *Orchestrator) OptimizeMemoryUsage() bool {
	pressure := o.monitor.Pressure()
	if pressure <= o.cfg.MemoryOptimizeThreshold {
		return false
	}
	reclaimed := o.monitor.ForceGC()
	o.cache.Clear()
	o.incremental.Clear()
	o.logger.WithFields(map[string]any{
		"reclaimed_bytes": reclaimed,
		"pressure":        pressure,
	}).Info("memory optimized")
	return true
}

// Stats returns a snapshot of pipeline counters.
func (o *Orchestrator) Stats() PipelineStats {
	return PipelineStats{
		TotalValidations:       o.totalValidations.Load(),
		FullValidations:        o.fullRuns.Load(),
		IncrementalValidations: o.incrementalRuns.Load(),
		CacheHitsServed:        o.cacheHitsServed.Load(),
		AverageDuration:        time.Duration(o.avgDurationNanos.Load()),
		LastDuration:           time.Duration(o.lastDuration.Load()),
		Cache:                  o.cache.Stats(),
		Memory:                 o.monitor.Snapshot(),
	}
}

// ResetStats zeroes the pipeline counters and peak tracking.
func (o *Orchestrator) ResetStats() {
	o.totalValidations.Store(0)
	o.fullRuns.Store(0)
	o.incrementalRuns.Store(0)
	o.cacheHitsServed.Store(0)
	o.avgDurationNanos.Store(0)
	o.lastDuration.Store(0)
	o.monitor.ResetPeaks()
}

// Cache exposes the result cache for inspection.
func (o *Orchestrator) Cache() *ResultCache { return o.cache }

// Memory exposes the memory monitor for inspection.
func (o *Orchestrator) Memory() *MemoryMonitor { return o.monitor }

// Dispose shuts the pipeline down: executor first so no run touches the
// cache afterward, then the cache, then the monitor. Idempotent.
func (o *Orchestrator) Dispose(ctx context.Context) error {
	if !o.disposed.CompareAndSwap(false, true) {
		return nil
	}
	err := o.executor.Shutdown(ctx)
	o.cache.Clear()
	o.monitor.Shutdown()
	o.logger.Info("validation pipeline disposed")
	return err
}
