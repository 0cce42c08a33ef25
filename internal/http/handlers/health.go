package handlers

import (
	"net/http"
	"time"
)

// HealthInfo describes the configured backends.
type HealthInfo struct {
	Storage            string
	PushConfigured     bool
	TelegramConfigured bool
	ArchiveConfigured  bool
}

// Health reports liveness and configuration.
// GET /health
func Health(info HealthInfo, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"storage":  info.Storage,
			"now":      now().UTC().Format(time.RFC3339),
			"webPush":  map[string]bool{"configured": info.PushConfigured},
			"telegram": map[string]bool{"configured": info.TelegramConfigured},
			"archive":  map[string]bool{"configured": info.ArchiveConfigured},
		})
	}
}
