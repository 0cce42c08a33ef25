package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// Syncer runs a sync on demand.
type Syncer interface {
	Run(ctx context.Context, trigger syncer.Trigger) syncer.Result
}

var errNoSnapshot = errors.New("handlers: no snapshot available")

// SlotsHandler answers availability queries against the latest snapshot.
type SlotsHandler struct {
	snapshots store.SnapshotStore
	syncer    Syncer
	engine    *query.Engine
	logger    *logging.Logger
}

// NewSlotsHandler creates a SlotsHandler. When no snapshot is stored yet the
// first query runs a sync.
func NewSlotsHandler(snapshots store.SnapshotStore, sync Syncer, engine *query.Engine, logger *logging.Logger) *SlotsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotsHandler{snapshots: snapshots, syncer: sync, engine: engine, logger: logger}
}

// Lookup answers q with the default result limit.
func (h *SlotsHandler) Lookup(ctx context.Context, q string) (query.Result, error) {
	return h.lookup(ctx, q, query.DefaultLimit)
}

func (h *SlotsHandler) lookup(ctx context.Context, q string, limit int) (query.Result, error) {
	snap, err := h.latest(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return h.engine.Answer(ctx, snap, q, limit), nil
}

func (h *SlotsHandler) latest(ctx context.Context) (*slots.Snapshot, error) {
	snap, err := h.snapshots.LatestSnapshot(ctx)
	if err != nil || snap != nil {
		return snap, err
	}
	if h.syncer == nil {
		return nil, errNoSnapshot
	}
	res := h.syncer.Run(ctx, syncer.TriggerQuery)
	if !res.OK {
		return nil, errors.New(res.Reason)
	}
	snap, err = h.snapshots.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errNoSnapshot
	}
	return snap, nil
}

// GetSlots answers a query.
// GET /api/slots?q=&limit=
func (h *SlotsHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := query.ToSafeLimit(r.URL.Query().Get("limit"))

	res, err := h.lookup(r.Context(), q, limit)
	if err != nil {
		h.logger.Error("failed to answer slots query", "error", err, "query", q)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
