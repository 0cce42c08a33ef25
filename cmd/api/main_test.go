package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbootstrap "github.com/wolfman30/slot-watch/internal/app/bootstrap"
	appconfig "github.com/wolfman30/slot-watch/internal/config"
	httpmiddleware "github.com/wolfman30/slot-watch/internal/http/middleware"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

func newTestServer(t *testing.T, env string) http.Handler {
	t.Helper()
	metricsHandler, reg := setupMetrics()
	cfg := &appconfig.Config{Env: env, StoreBackend: "memory", QueryCacheSize: 8, AdminAPIToken: "admin-token"}
	app, err := appbootstrap.Build(context.Background(), cfg, logging.Discard(), reg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return buildRouter(app, logging.Discard(), metricsHandler, httpmiddleware.NewRateLimiter(100, 100))
}

func TestSetupMetricsExposesSlotMetrics(t *testing.T) {
	h := newTestServer(t, "development")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "go_goroutines"), "expected runtime collector")
}

func TestBuildRouterHealth(t *testing.T) {
	h := newTestServer(t, "development")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		OK       bool            `json:"ok"`
		Storage  string          `json:"storage"`
		WebPush  map[string]bool `json:"webPush"`
		Telegram map[string]bool `json:"telegram"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "memory", body.Storage)
	assert.False(t, body.WebPush["configured"])
	assert.False(t, body.Telegram["configured"])
}

func TestBuildRouterOptionalCollaborators(t *testing.T) {
	h := newTestServer(t, "development")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/push/public-key", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/runs", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/telegram/webhook", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildRouterProductionRequiresAdminToken(t *testing.T) {
	h := newTestServer(t, "production")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/runs", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cron/daily-sync", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBuildRouterSubscriptionsRoundTrip(t *testing.T) {
	h := newTestServer(t, "development")

	body := `{"userId":"u1","query":"reumatolog","channel":"in_app"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/subscriptions", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/subscriptions?userId=u1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "reumatolog")
}

func TestStartSyncWorkerDisabled(t *testing.T) {
	assert.Nil(t, startSyncWorker(context.Background(), nil, time.Minute, logging.Discard()))
	assert.Nil(t, startSyncWorker(context.Background(), nil, 0, logging.Discard()))
}

func TestEvictIdleClientsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		evictIdleClients(ctx, httpmiddleware.NewRateLimiter(1, 1), time.Millisecond, time.Minute)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictor did not stop")
	}
}

func TestIsProduction(t *testing.T) {
	assert.True(t, isProduction("production"))
	assert.True(t, isProduction(" PROD "))
	assert.False(t, isProduction("development"))
	assert.False(t, isProduction(""))
}
