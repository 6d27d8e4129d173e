package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"templatehub/internal/cache"
	"templatehub/internal/transport/http/shared"
)

// Pinger is the slice of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatsSource exposes the cache counters of one dao.
type StatsSource interface {
	CacheStats() []cache.Stats
}

// OpsHandler serves the operational endpoints: liveness and cache
// observability.
type OpsHandler struct {
	logger *slog.Logger
	db     Pinger
	stats  []StatsSource
}

// NewOpsHandler creates an OpsHandler. db may be nil when the process runs on
// the in-memory stores.
func NewOpsHandler(logger *slog.Logger, db Pinger, stats ...StatsSource) *OpsHandler {
	return &OpsHandler{logger: logger, db: db, stats: stats}
}

func (h *OpsHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.ErrorContext(r.Context(), "health check db ping failed", "error", err.Error())
			shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	out := make([]cache.Stats, 0)
	for _, source := range h.stats {
		out = append(out, source.CacheStats()...)
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
