package validation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/observability"
)

// State is the executor's position in the validation lifecycle.
type State int32

const (
	StateIdle State = iota
	StatePending
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Callback receives the outcome of a submitted validation. Exactly one of
// the three methods fires per submission: superseded or cancelled runs get
// OnValidationCancelled and never OnValidationCompleted.
type Callback interface {
	OnValidationCompleted(requestID string, result *linter.Result)
	OnValidationCancelled(requestID string)
	OnValidationError(requestID string, err error)
}

// Dispatcher delivers callbacks. The default runs them inline on the worker
// goroutine; an editor integration can supply one that marshals onto its UI
// thread.
type Dispatcher func(fn func())

// ValidateFunc performs the actual validation of content. It must honor
// context cancellation.
type ValidateFunc func(ctx context.Context, content string) (*linter.Result, error)

type pendingRun struct {
	id       string
	content  string
	callback Callback
}

type runHandle struct {
	id         string
	generation uint64
	cancel     context.CancelFunc
}

// Executor runs at most one validation at a time with debounced scheduling
// and last-submission-wins semantics. A new submission supersedes both the
// pending slot and any in-flight run; superseded runs are cancelled through
// their context and report OnValidationCancelled.
type Executor struct {
	validate ValidateFunc
	dispatch Dispatcher
	logger   *observability.Logger
	metrics  *observability.Metrics

	debounce time.Duration
	timeout  time.Duration

	mu         sync.Mutex
	state      State
	timer      *time.Timer
	timerSeq   uint64
	pending    *pendingRun
	running    *runHandle
	generation uint64
	closed     bool
	wg         sync.WaitGroup
}

// NewExecutor builds an executor. A nil dispatcher delivers callbacks inline.
func NewExecutor(validate ValidateFunc, debounce, timeout time.Duration, dispatch Dispatcher, metrics *observability.Metrics, logger *observability.Logger) *Executor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Executor{
		validate: validate,
		dispatch: dispatch,
		logger:   logger,
		metrics:  metrics,
		debounce: debounce,
		timeout:  timeout,
		state:    StateIdle,
	}
}

// Submit starts a validation immediately, superseding any pending or
// running one. It returns the request ID the callback will be invoked with.
func (e *Executor) Submit(content string, cb Callback) (string, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrExecutorClosed
	}
	id := uuid.NewString()
	notify := e.supersedeLocked()
	e.startLocked(&pendingRun{id: id, content: content, callback: cb})
	e.mu.Unlock()
	notify()
	return id, nil
}

// SubmitWithDebounce schedules a validation after the debounce interval.
// Each call resets the timer, so a burst of submissions collapses into one
// run of the last content. Earlier pending submissions report
// OnValidationCancelled.
func (e *Executor) SubmitWithDebounce(content string, cb Callback) (string, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrExecutorClosed
	}
	id := uuid.NewString()
	notify := e.cancelPendingLocked()
	e.pending = &pendingRun{id: id, content: content, callback: cb}
	e.state = StatePending
	if e.timer != nil {
		e.timer.Stop()
	}
	// The sequence number marks the live timer. A replaced timer that had
	// already fired and was waiting on the mutex wakes to a stale value and
	// does nothing, so the new pending run keeps its full debounce window.
	e.timerSeq++
	seq := e.timerSeq
	e.timer = time.AfterFunc(e.debounce, func() { e.firePending(seq) })
	e.updateGaugesLocked()
	e.mu.Unlock()
	notify()

	e.logger.WithFields(map[string]any{
		"request_id": id,
		"debounce":   e.debounce.String(),
	}).Debug("validation scheduled")
	return id, nil
}

func (e *Executor) firePending(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.pending == nil || seq != e.timerSeq {
		return
	}
	p := e.pending
	e.pending = nil
	e.timer = nil
	e.cancelRunningLocked()
	e.startLocked(p)
}

// supersedeLocked clears both the pending slot and the running slot. The
// returned func delivers the pending run's cancellation callback and must be
// invoked after the mutex is released.
func (e *Executor) supersedeLocked() func() {
	notify := e.cancelPendingLocked()
	e.cancelRunningLocked()
	return notify
}

// cancelPendingLocked empties the debounce slot. Callers invoke the
// returned func outside the lock so a callback re-entering the executor
// cannot deadlock.
func (e *Executor) cancelPendingLocked() func() {
	e.timerSeq++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.pending == nil {
		return func() {}
	}
	p := e.pending
	e.pending = nil
	if e.metrics != nil {
		e.metrics.SupersededRunsTotal.Inc()
	}
	return func() {
		e.dispatchCallback(func() { p.callback.OnValidationCancelled(p.id) })
	}
}

// cancelRunningLocked signals the in-flight run to stop. The run's own
// goroutine delivers OnValidationCancelled once it observes the cancelled
// context; detaching it from the running slot here marks it stale so a late
// completion cannot overwrite a newer one.
func (e *Executor) cancelRunningLocked() {
	if e.running == nil {
		return
	}
	e.running.cancel()
	e.running = nil
	if e.metrics != nil {
		e.metrics.SupersededRunsTotal.Inc()
	}
}

// Cancel supersedes any pending or running validation without scheduling a
// replacement. Superseded work reports OnValidationCancelled.
func (e *Executor) Cancel() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	notify := e.supersedeLocked()
	e.state = StateIdle
	e.updateGaugesLocked()
	e.mu.Unlock()
	notify()
}

func (e *Executor) startLocked(p *pendingRun) {
	ctx := observability.WithRunID(context.Background(), p.id)
	ctx = observability.WithLogger(ctx, e.logger)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	e.generation++
	e.running = &runHandle{id: p.id, generation: e.generation, cancel: cancel}
	e.state = StateRunning
	e.updateGaugesLocked()
	e.wg.Add(1)
	go e.run(ctx, cancel, e.generation, p)
}

func (e *Executor) run(ctx context.Context, cancel context.CancelFunc, generation uint64, p *pendingRun) {
	defer e.wg.Done()
	defer cancel()

	started := time.Now()
	result, err := e.safeValidate(ctx, p.content)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	e.mu.Lock()
	current := e.running != nil && e.running.generation == generation
	if current {
		e.running = nil
	}
	switch {
	case err != nil && isCancellation(err):
		if current {
			e.state = StateCancelled
		}
	case err != nil:
		if current {
			e.state = StateFailed
		}
	case !current:
		// A newer submission superseded this run after it finished
		// validating but before it reported. Its result must not
		// surface as a completion.
	default:
		e.state = StateCompleted
	}
	e.updateGaugesLocked()
	e.mu.Unlock()

	logger := e.logger.WithFields(map[string]any{
		"request_id": p.id,
		"duration":   time.Since(started).String(),
	})
	switch {
	case err != nil && isCancellation(err):
		logger.Debug("validation cancelled")
		e.dispatchCallback(func() { p.callback.OnValidationCancelled(p.id) })
	case err != nil:
		logger.WithError(err).Error("validation failed")
		if e.metrics != nil {
			e.metrics.ValidationErrors.Inc()
		}
		e.dispatchCallback(func() { p.callback.OnValidationError(p.id, err) })
	case !current:
		logger.Debug("validation superseded, discarding result")
		e.dispatchCallback(func() { p.callback.OnValidationCancelled(p.id) })
	default:
		logger.Debug("validation completed")
		e.dispatchCallback(func() { p.callback.OnValidationCompleted(p.id, result) })
	}
}

func (e *Executor) safeValidate(ctx context.Context, content string) (result *linter.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("validation panicked: %v", rec)
			e.logger.WithFields(map[string]any{
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error("validation run panicked")
		}
	}()
	return e.validate(ctx, content)
}

func (e *Executor) dispatchCallback(fn func()) {
	e.dispatch(func() {
		defer func() {
			if rec := recover(); rec != nil {
				e.logger.WithField("panic", rec).Error("validation callback panicked")
			}
		}()
		fn()
	})
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Executor) updateGaugesLocked() {
	if e.metrics == nil {
		return
	}
	queued := 0.0
	if e.pending != nil {
		queued = 1
	}
	active := 0.0
	if e.running != nil {
		active = 1
	}
	e.metrics.ExecutorQueueSize.Set(queued)
	e.metrics.ExecutorActiveWorkers.Set(active)
}

// State returns the lifecycle state of the most recent submission.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRunning reports whether a validation is in flight.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running != nil
}

// QueueSize reports how many submissions are waiting on the debounce timer
// (at most one, the latest).
func (e *Executor) QueueSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != nil {
		return 1
	}
	return 0
}

// ActiveWorkers reports how many validation goroutines are running.
func (e *Executor) ActiveWorkers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running != nil {
		return 1
	}
	return 0
}

// Shutdown cancels pending and running work and waits for the worker to
// exit, up to the context deadline. It is idempotent.
func (e *Executor) Shutdown(ctx context.Context) error {
	notify := func() {}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		notify = e.supersedeLocked()
		e.state = StateIdle
	}
	e.mu.Unlock()
	notify()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}
