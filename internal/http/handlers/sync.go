package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/slot-watch/internal/store/postgres"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// RunHistory lists recorded sync runs.
type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]postgres.SyncRun, error)
}

// SyncHandler triggers syncs and exposes their history.
type SyncHandler struct {
	syncer  Syncer
	history RunHistory
	logger  *logging.Logger
}

// NewSyncHandler creates a SyncHandler. history may be nil.
func NewSyncHandler(sync Syncer, history RunHistory, logger *logging.Logger) *SyncHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncHandler{syncer: sync, history: history, logger: logger}
}

// Manual runs a sync for an admin.
// POST /api/sync
func (h *SyncHandler) Manual(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, syncer.TriggerManual)
}

// Cron runs the scheduled daily sync.
// GET /api/cron/daily-sync
func (h *SyncHandler) Cron(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, syncer.TriggerCron)
}

func (h *SyncHandler) run(w http.ResponseWriter, r *http.Request, trigger syncer.Trigger) {
	res := h.syncer.Run(r.Context(), trigger)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

// Runs lists the latest recorded runs.
// GET /api/sync/runs?limit=
func (h *SyncHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		jsonError(w, "sync history is not configured", http.StatusNotFound)
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), 20, 100)
	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sync runs", "error", err)
		jsonError(w, "failed to list sync runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []postgres.SyncRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(runs), "items": runs})
}
