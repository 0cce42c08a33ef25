package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func corsRequest(method, path, origin string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORSOriginAllowlist(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"listed origin", []string{"https://slots.example.com"}, "https://slots.example.com", "https://slots.example.com"},
		{"unknown origin", []string{"https://slots.example.com"}, "https://evil.example", ""},
		{"wildcard echoes origin", []string{"*"}, "https://random.example", "https://random.example"},
		{"blank entries ignored", []string{" ", ""}, "https://slots.example.com", ""},
		{"no origin header", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			rec := httptest.NewRecorder()
			CORS(CORSConfig{AllowedOrigins: tt.origins})(okHandler(&called)).
				ServeHTTP(rec, corsRequest(http.MethodGet, "/api/slots", tt.origin))

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(CORSConfig{AllowedOrigins: []string{"https://slots.example.com"}})(okHandler(nil)).
		ServeHTTP(rec, corsRequest(http.MethodGet, "/api/slots", "https://slots.example.com"))

	assert.Equal(t, "GET, POST, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type, X-Admin-Token, X-Request-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSConfiguredValues(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://slots.example.com"},
		AllowedMethods: []string{" get ", "OPTIONS", "put"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         time.Hour,
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(okHandler(nil)).ServeHTTP(rec, corsRequest(http.MethodGet, "/api/slots", "https://slots.example.com"))

	assert.Equal(t, "GET, PUT, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSHandlesPreflight(t *testing.T) {
	called := false
	req := corsRequest(http.MethodOptions, "/api/subscriptions", "https://slots.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()

	CORS(CORSConfig{AllowedOrigins: []string{"https://slots.example.com"}})(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSAdvertisesRouteMethods(t *testing.T) {
	r := chi.NewRouter()
	r.Use(CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{http.MethodPatch}}))
	r.Route("/api", func(api chi.Router) {
		api.Get("/subscriptions", okHandler(nil).ServeHTTP)
		api.Post("/subscriptions", okHandler(nil).ServeHTTP)
		api.Get("/notifications", okHandler(nil).ServeHTTP)
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/subscriptions", "GET, POST, OPTIONS"},
		{"/api/notifications", "GET, OPTIONS"},
		{"/api/unknown", "PATCH, OPTIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := corsRequest(http.MethodOptions, tt.path, "https://slots.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}
