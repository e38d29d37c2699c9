package validation

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chasegan/kalixlint/pkg/observability"
)

const (
	// DefaultMemoryCheckInterval is how often the monitor samples the heap.
	DefaultMemoryCheckInterval = 5 * time.Second
	// highHeapThresholdBytes triggers a warning log when heap use crosses it.
	highHeapThresholdBytes = 512 * 1024 * 1024
	// criticalPressure triggers an error log.
	criticalPressure = 0.9
)

// MemorySnapshot is a point-in-time view of heap usage.
type MemorySnapshot struct {
	HeapUsed  uint64    `json:"heap_used_bytes"`
	HeapSys   uint64    `json:"heap_sys_bytes"`
	PeakHeap  uint64    `json:"peak_heap_bytes"`
	Pressure  float64   `json:"pressure"`
	NumGC     uint32    `json:"num_gc"`
	SampledAt time.Time `json:"sampled_at"`
}

// MemoryMonitor samples heap statistics on a fixed interval, tracks the
// session peak, and flags sustained pressure. It also measures the heap
// growth of individual validation runs and can force a collection when the
// orchestrator decides memory needs reclaiming.
type MemoryMonitor struct {
	logger   *observability.Logger
	metrics  *observability.Metrics
	interval time.Duration

	peakHeap       atomic.Uint64
	trackingBase   atomic.Uint64
	validationPeak atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemoryMonitor builds a monitor. Call Start to begin sampling.
func NewMemoryMonitor(interval time.Duration, metrics *observability.Metrics, logger *observability.Logger) *MemoryMonitor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if interval <= 0 {
		interval = DefaultMemoryCheckInterval
	}
	return &MemoryMonitor{
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sampling goroutine.
func (m *MemoryMonitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample()
			case <-m.stop:
				return
			}
		}
	}()
}

// sample runs one check under a panic guard so a bad tick never kills the
// monitor goroutine.
func (m *MemoryMonitor) sample() {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.WithField("panic", rec).Error("memory check panicked")
		}
	}()

	snap := m.Snapshot()
	if m.metrics != nil {
		m.metrics.HeapUsedBytes.Set(float64(snap.HeapUsed))
		m.metrics.HeapPeakBytes.Set(float64(snap.PeakHeap))
		m.metrics.MemoryPressure.Set(snap.Pressure)
	}

	switch {
	case snap.Pressure >= criticalPressure:
		m.logger.WithFields(map[string]any{
			"heap_used": snap.HeapUsed,
			"heap_sys":  snap.HeapSys,
			"pressure":  snap.Pressure,
		}).Error("critical memory pressure")
	case snap.HeapUsed > highHeapThresholdBytes:
		m.logger.WithFields(map[string]any{
			"heap_used": snap.HeapUsed,
			"pressure":  snap.Pressure,
		}).Warn("heap usage above threshold")
	}
}

// Snapshot reads current heap statistics and updates the session peak.
func (m *MemoryMonitor) Snapshot() MemorySnapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	for {
		peak := m.peakHeap.Load()
		if stats.HeapAlloc <= peak || m.peakHeap.CompareAndSwap(peak, stats.HeapAlloc) {
			break
		}
	}

	return MemorySnapshot{
		HeapUsed:  stats.HeapAlloc,
		HeapSys:   stats.HeapSys,
		PeakHeap:  m.peakHeap.Load(),
		Pressure:  pressure(stats.HeapAlloc, stats.HeapSys),
		NumGC:     stats.NumGC,
		SampledAt: time.Now(),
	}
}

// Pressure returns current heap pressure in [0, 1].
func (m *MemoryMonitor) Pressure() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return pressure(stats.HeapAlloc, stats.HeapSys)
}

func pressure(used, sys uint64) float64 {
	if sys == 0 {
		return 0
	}
	p := float64(used) / float64(sys)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// StartValidationTracking records the heap baseline for a validation run.
func (m *MemoryMonitor) StartValidationTracking() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.trackingBase.Store(stats.HeapAlloc)
}

// EndValidationTracking returns the heap growth since tracking started and
// folds the run's high-water mark into the validation peak.
func (m *MemoryMonitor) EndValidationTracking() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	for {
		peak := m.validationPeak.Load()
		if stats.HeapAlloc <= peak || m.validationPeak.CompareAndSwap(peak, stats.HeapAlloc) {
			break
		}
	}
	return int64(stats.HeapAlloc) - int64(m.trackingBase.Load())
}

// ForceGC runs a collection, returns memory to the OS, and reports the
// signed change in heap use (positive means bytes reclaimed).
func (m *MemoryMonitor) ForceGC() int64 {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	runtime.GC()
	debug.FreeOSMemory()

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	if m.metrics != nil {
		m.metrics.GCForcedTotal.Inc()
	}
	reclaimed := int64(before.HeapAlloc) - int64(after.HeapAlloc)
	m.logger.WithField("reclaimed_bytes", reclaimed).Info("forced garbage collection")
	return reclaimed
}

// PeakHeap returns the largest heap use observed this session.
func (m *MemoryMonitor) PeakHeap() uint64 {
	return m.peakHeap.Load()
}

// ValidationPeak returns the largest heap use observed at the end of a
// validation run.
func (m *MemoryMonitor) ValidationPeak() uint64 {
	return m.validationPeak.Load()
}

// ResetPeaks zeroes the tracked peaks.
func (m *MemoryMonitor) ResetPeaks() {
	m.peakHeap.Store(0)
	m.validationPeak.Store(0)
}

// Shutdown stops the sampling goroutine. Safe to call more than once.
func (m *MemoryMonitor) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}
