package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/schema"
	"github.com/chasegan/kalixlint/pkg/validation"
)

// newStatusServer exposes metrics, health, and pipeline stats over HTTP.
func newStatusServer(addr string, orch *validation.Orchestrator, schemas *schema.Manager, metrics *observability.Metrics) *http.Server {
	router := mux.NewRouter()

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(schemas, orch))

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orch.Stats())
	}).Methods(http.MethodGet)

	router.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"version":         schemas.SchemaVersion(),
			"path":            schemas.SchemaPath(),
			"fallback_active": schemas.FallbackActive(),
			"linting_enabled": schemas.IsLintingEnabled(),
			"disabled_rules":  schemas.DisabledRules(),
		})
	}).Methods(http.MethodGet)

	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
