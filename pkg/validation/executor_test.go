package validation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/observability"
)

// recorder collects callback invocations and signals them on channels so
// tests can wait without polling.
type recorder struct {
	mu        sync.Mutex
	completed []string
	cancelled []string
	failed    []string
	errs      map[string]error
	results   map[string]*linter.Result

	completedCh chan string
	cancelledCh chan string
	failedCh    chan string
}

func newRecorder() *recorder {
	return &recorder{
		errs:        make(map[string]error),
		results:     make(map[string]*linter.Result),
		completedCh: make(chan string, 16),
		cancelledCh: make(chan string, 16),
		failedCh:    make(chan string, 16),
	}
}

func (r *recorder) OnValidationCompleted(requestID string, result *linter.Result) {
	r.mu.Lock()
	r.completed = append(r.completed, requestID)
	r.results[requestID] = result
	r.mu.Unlock()
	r.completedCh <- requestID
}

func (r *recorder) OnValidationCancelled(requestID string) {
	r.mu.Lock()
	r.cancelled = append(r.cancelled, requestID)
	r.mu.Unlock()
	r.cancelledCh <- requestID
}

func (r *recorder) OnValidationError(requestID string, err error) {
	r.mu.Lock()
	r.failed = append(r.failed, requestID)
	r.errs[requestID] = err
	r.mu.Unlock()
	r.failedCh <- requestID
}

func (r *recorder) completedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completed)
}

func waitFor(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return ""
	}
}

func newTestExecutor(validate ValidateFunc, debounce time.Duration) *Executor {
	return NewExecutor(validate, debounce, 10*time.Second, nil, nil, nil)
}

func okValidate(seen *[]string, mu *sync.Mutex) ValidateFunc {
	return func(ctx context.Context, content string) (*linter.Result, error) {
		if seen != nil {
			mu.Lock()
			*seen = append(*seen, content)
			mu.Unlock()
		}
		return linter.NewResult(), nil
	}
}

func TestExecutorSubmit(t *testing.T) {
	rec := newRecorder()
	e := newTestExecutor(okValidate(nil, nil), time.Hour)
	defer e.Shutdown(context.Background())

	id, err := e.Submit("content", rec)
	require.NoError(t, err)

	got := waitFor(t, rec.completedCh)
	assert.Equal(t, id, got)
	assert.NotNil(t, rec.results[id])
	assert.Equal(t, StateCompleted, e.State())
	assert.False(t, e.IsRunning())
}

func TestExecutorDebounceCollapsesBurst(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	rec := newRecorder()
	e := newTestExecutor(okValidate(&seen, &mu), 50*time.Millisecond)
	defer e.Shutdown(context.Background())

	_, err := e.SubmitWithDebounce("v1", rec)
	require.NoError(t, err)
	_, err = e.SubmitWithDebounce("v2", rec)
	require.NoError(t, err)
	last, err := e.SubmitWithDebounce("v3", rec)
	require.NoError(t, err)

	assert.Equal(t, StatePending, e.State())
	assert.Equal(t, 1, e.QueueSize())

	completed := waitFor(t, rec.completedCh)
	assert.Equal(t, last, completed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"v3"}, seen, "only the latest content runs")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.cancelled, 2, "superseded submissions report cancellation")
	assert.NotContains(t, rec.cancelled, last)
}

func TestExecutorSupersedesRunningValidation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	validate := func(ctx context.Context, content string) (*linter.Result, error) {
		started <- struct{}{}
		if content == "slow" {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
			}
		}
		return linter.NewResult(), nil
	}

	rec := newRecorder()
	e := newTestExecutor(validate, time.Hour)
	defer e.Shutdown(context.Background())

	slowID, err := e.Submit("slow", rec)
	require.NoError(t, err)
	<-started

	fastID, err := e.Submit("fast", rec)
	require.NoError(t, err)

	cancelled := waitFor(t, rec.cancelledCh)
	assert.Equal(t, slowID, cancelled, "the superseded run reports cancellation, never completion")

	completed := waitFor(t, rec.completedCh)
	assert.Equal(t, fastID, completed)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotContains(t, rec.completed, slowID)
}

func TestExecutorStaleCompletionDiscarded(t *testing.T) {
	// The slow run ignores its context, finishing normally after being
	// superseded. Its result must still be reported as cancelled.
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	validate := func(ctx context.Context, content string) (*linter.Result, error) {
		started <- struct{}{}
		if content == "stubborn" {
			<-release
		}
		return linter.NewResult(), nil
	}

	rec := newRecorder()
	e := newTestExecutor(validate, time.Hour)
	defer e.Shutdown(context.Background())

	stubbornID, err := e.Submit("stubborn", rec)
	require.NoError(t, err)
	<-started

	_, err = e.Submit("fast", rec)
	require.NoError(t, err)
	waitFor(t, rec.completedCh)

	close(release)
	cancelled := waitFor(t, rec.cancelledCh)
	assert.Equal(t, stubbornID, cancelled)
	assert.Equal(t, 1, rec.completedCount())
}

func TestExecutorErrorRouting(t *testing.T) {
	wantErr := errors.New("schema exploded")
	rec := newRecorder()
	e := newTestExecutor(func(ctx context.Context, content string) (*linter.Result, error) {
		return nil, wantErr
	}, time.Hour)
	defer e.Shutdown(context.Background())

	id, err := e.Submit("content", rec)
	require.NoError(t, err)

	failed := waitFor(t, rec.failedCh)
	assert.Equal(t, id, failed)
	assert.ErrorIs(t, rec.errs[id], wantErr)
	assert.Equal(t, StateFailed, e.State())
}

func TestExecutorPanicBecomesError(t *testing.T) {
	rec := newRecorder()
	e := newTestExecutor(func(ctx context.Context, content string) (*linter.Result, error) {
		panic("kaboom")
	}, time.Hour)
	defer e.Shutdown(context.Background())

	id, err := e.Submit("content", rec)
	require.NoError(t, err)

	failed := waitFor(t, rec.failedCh)
	assert.Equal(t, id, failed)
	assert.Contains(t, rec.errs[id].Error(), "kaboom")
}

func TestExecutorShutdown(t *testing.T) {
	rec := newRecorder()
	e := newTestExecutor(okValidate(nil, nil), 50*time.Millisecond)

	_, err := e.SubmitWithDebounce("pending", rec)
	require.NoError(t, err)

	require.NoError(t, e.Shutdown(context.Background()))
	waitFor(t, rec.cancelledCh)

	_, err = e.Submit("late", rec)
	assert.ErrorIs(t, err, ErrExecutorClosed)
	_, err = e.SubmitWithDebounce("late", rec)
	assert.ErrorIs(t, err, ErrExecutorClosed)

	// Idempotent.
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestExecutorCancel(t *testing.T) {
	t.Run("CancelsRunningValidation", func(t *testing.T) {
		rec := newRecorder()
		slow := func(ctx context.Context, content string) (*linter.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		e := newTestExecutor(slow, time.Hour)
		defer e.Shutdown(context.Background())

		id, err := e.Submit("content", rec)
		require.NoError(t, err)

		e.Cancel()
		got := waitFor(t, rec.cancelledCh)
		assert.Equal(t, id, got)
		assert.False(t, e.IsRunning())
		assert.Equal(t, StateIdle, e.State())
		assert.Zero(t, rec.completedCount())
	})

	t.Run("CancelsPendingValidation", func(t *testing.T) {
		rec := newRecorder()
		e := newTestExecutor(okValidate(nil, nil), time.Hour)
		defer e.Shutdown(context.Background())

		id, err := e.SubmitWithDebounce("content", rec)
		require.NoError(t, err)

		e.Cancel()
		got := waitFor(t, rec.cancelledCh)
		assert.Equal(t, id, got)
		assert.Zero(t, e.QueueSize())
		assert.Equal(t, StateIdle, e.State())
	})
}

func TestExecutorStaleDebounceTimerIsNoop(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	rec := newRecorder()
	e := newTestExecutor(okValidate(&seen, &mu), 50*time.Millisecond)
	defer e.Shutdown(context.Background())

	id, err := e.SubmitWithDebounce("v1", rec)
	require.NoError(t, err)

	// A timer from an earlier, already-replaced schedule waking up late must
	// not start the current pending run ahead of its debounce window.
	e.firePending(0)
	assert.Equal(t, 1, e.QueueSize())
	assert.False(t, e.IsRunning())

	got := waitFor(t, rec.completedCh)
	assert.Equal(t, id, got)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"v1"}, seen)
}

func TestExecutorRunContextCarriesRequestID(t *testing.T) {
	ids := make(chan string, 1)
	validate := func(ctx context.Context, content string) (*linter.Result, error) {
		ids <- observability.GetRunID(ctx)
		return linter.NewResult(), nil
	}
	rec := newRecorder()
	e := newTestExecutor(validate, time.Hour)
	defer e.Shutdown(context.Background())

	id, err := e.Submit("content", rec)
	require.NoError(t, err)
	waitFor(t, rec.completedCh)
	assert.Equal(t, id, <-ids)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
}
