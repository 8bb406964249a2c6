package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rexa/newscrawler/internal/metrics"
	"github.com/rexa/newscrawler/internal/ratelimit"
)

// MonitorHandler serves /health and /metrics as JSON. budget may be nil.
func MonitorHandler(m *metrics.Metrics, budget *ratelimit.Budget) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()
		if budget != nil {
			stats["classifier_budget"] = budget.Stats()
		}
		writeJSON(w, http.StatusOK, stats)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StartMonitoring serves the monitoring endpoints until ctx is done.
func StartMonitoring(ctx context.Context, port string, handler http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("monitoring server error", "error", err)
	}
}
