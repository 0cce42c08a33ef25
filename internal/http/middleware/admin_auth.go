package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminAuthConfig configures AdminAuth. With neither Token nor JWTSecret set,
// requests pass only when AllowOpen is true (non-production).
type AdminAuthConfig struct {
	Token     string
	JWTSecret string
	AllowOpen bool
}

// AdminAuth accepts the static admin token (as a Bearer token or in
// X-Admin-Token) or an HMAC-signed JWT.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	token := strings.TrimSpace(cfg.Token)
	secret := strings.TrimSpace(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" && secret == "" {
				if cfg.AllowOpen {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w)
				return
			}

			bearer := bearerToken(r.Header.Get("Authorization"))
			if token != "" && (equalSecret(bearer, token) || equalSecret(strings.TrimSpace(r.Header.Get("X-Admin-Token")), token)) {
				next.ServeHTTP(w, r)
				return
			}
			if secret != "" && bearer != "" {
				if claims, ok := parseAdminJWT(bearer, secret); ok {
					ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			unauthorized(w)
		})
	}
}

// CronAuth requires `Authorization: Bearer <secret>`. An empty secret passes
// only when allowOpen is true.
func CronAuth(secret string, allowOpen bool) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if allowOpen {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w)
				return
			}
			if !equalSecret(bearerToken(r.Header.Get("Authorization")), secret) {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TelegramSecret checks the X-Telegram-Bot-Api-Secret-Token header when a
// webhook secret is configured.
func TelegramSecret(secret string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && !equalSecret(strings.TrimSpace(r.Header.Get("X-Telegram-Bot-Api-Secret-Token")), secret) {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

func parseAdminJWT(tokenString, secret string) (jwt.RegisteredClaims, bool) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return jwt.RegisteredClaims{}, false
	}
	return claims, true
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func equalSecret(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
