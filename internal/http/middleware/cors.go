package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// CORSConfig configures the CORS middleware. Empty fields fall back to the
// defaults below.
type CORSConfig struct {
	// AllowedOrigins is the origin allowlist. "*" echoes back any origin.
	AllowedOrigins []string
	// AllowedMethods is advertised when the router cannot resolve the
	// request path.
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}
	defaultCORSHeaders = []string{"Authorization", "Content-Type", "X-Admin-Token", "X-Request-ID"}

	// corsCandidateMethods are probed against the chi routing tree.
	corsCandidateMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
	}
)

const defaultCORSMaxAge = 10 * time.Minute

// CORS returns an allowlist-based CORS middleware. Mounted on a chi router it
// advertises only the methods registered for the requested path.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}

	var fallbackMethods []string
	for _, method := range cfg.AllowedMethods {
		method = strings.ToUpper(strings.TrimSpace(method))
		if method != "" && method != http.MethodOptions {
			fallbackMethods = append(fallbackMethods, method)
		}
	}
	if len(fallbackMethods) == 0 {
		fallbackMethods = defaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}
	allowedHeaders := strings.Join(headers, ", ")
	maxAgeSeconds := strconv.Itoa(int(maxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && (allowAny || isAllowedOrigin(allow, origin)) {
				methods := routeMethods(r)
				if len(methods) == 0 {
					methods = append([]string(nil), fallbackMethods...)
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(append(methods, http.MethodOptions), ", "))
				w.Header().Set("Access-Control-Max-Age", maxAgeSeconds)
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// routeMethods lists the methods the enclosing chi router serves for the
// request path. It returns nil outside a chi router.
func routeMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	var methods []string
	for _, method := range corsCandidateMethods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, path) {
			methods = append(methods, method)
		}
	}
	return methods
}

func isAllowedOrigin(allow map[string]struct{}, origin string) bool {
	_, ok := allow[origin]
	return ok
}
