package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("FieldsAppearInOutput", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithField("request_id", "abc").Info("validated")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "validated", entry["msg"])
		assert.Equal(t, "abc", entry["request_id"])
	})

	t.Run("LevelFiltering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(WarnLevel, &buf)

		logger.Info("hidden")
		assert.Zero(t, buf.Len())

		logger.Warn("shown")
		assert.NotZero(t, buf.Len())
	})

	t.Run("RunIDContext", func(t *testing.T) {
		ctx := WithRunID(context.Background(), "run-1")
		assert.Equal(t, "run-1", GetRunID(ctx))
		assert.Equal(t, "", GetRunID(context.Background()))
	})
}

func TestMetricsRegistration(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m.Registry())

	m.ValidationsTotal.WithLabelValues("completed").Inc()
	m.CacheHitsTotal.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "kalixlint_validations_total")
	assert.Contains(t, body, "kalixlint_cache_hits_total")
}

type stubSchemaStatus struct {
	loaded   bool
	fallback bool
}

func (s stubSchemaStatus) IsSchemaLoaded() bool  { return s.loaded }
func (s stubSchemaStatus) SchemaVersion() string { return "1.2" }
func (s stubSchemaStatus) FallbackActive() bool  { return s.fallback }

type stubPipelineStatus struct{ running bool }

func (s stubPipelineStatus) IsValidationRunning() bool { return s.running }

func TestHealthChecker(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		h := NewHealthChecker(stubSchemaStatus{loaded: true}, stubPipelineStatus{})
		status := h.Check()
		assert.Equal(t, "healthy", status.Status)
	})

	t.Run("DegradedOnFallback", func(t *testing.T) {
		h := NewHealthChecker(stubSchemaStatus{loaded: true, fallback: true}, stubPipelineStatus{})
		assert.Equal(t, "degraded", h.Check().Status)
	})

	t.Run("UnhealthyWithoutSchema", func(t *testing.T) {
		h := NewHealthChecker(stubSchemaStatus{}, stubPipelineStatus{})
		assert.Equal(t, "unhealthy", h.Check().Status)
	})

	t.Run("Routes", func(t *testing.T) {
		router := mux.NewRouter()
		RegisterHealthRoutes(router, NewHealthChecker(stubSchemaStatus{loaded: true}, stubPipelineStatus{}))

		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
