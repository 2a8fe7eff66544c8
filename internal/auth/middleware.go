package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// KeyLookup resolves a presented key value to the name of the matching stored
// key. It returns ok=false when no key matches.
type KeyLookup func(ctx context.Context, presented string) (name string, ok bool, err error)

// Middleware handles authentication middleware
type Middleware struct {
	lookup          KeyLookup
	logger          *slog.Logger
	enabled         bool        // Static enabled flag (fallback)
	authEnabledFunc func() bool // Dynamic check for auth enabled state (optional)
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(lookup KeyLookup, logger *slog.Logger, enabled bool) *Middleware {
	return &Middleware{
		lookup:  lookup,
		logger:  logger,
		enabled: enabled,
	}
}

// SetAuthEnabledFunc sets a callback to dynamically check if auth is enabled.
// This allows the middleware to respect runtime config changes from the database.
func (m *Middleware) SetAuthEnabledFunc(fn func() bool) {
	m.authEnabledFunc = fn
}

// isAuthEnabled returns whether authentication is currently enabled.
// Uses the dynamic callback if set, otherwise falls back to the static flag.
func (m *Middleware) isAuthEnabled() bool {
	if m.authEnabledFunc != nil {
		return m.authEnabledFunc()
	}
	return m.enabled
}

// Context key for storing the authenticated key name
type authContextKey string

const ContextKeyName authContextKey = "auth_key_name"

// RequireAuth is middleware that requires a valid API key via
// "Authorization: Bearer <key>" or the X-API-Key header.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is disabled (check dynamically if callback is set), allow request through
		if !m.isAuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		presented := extractKey(r)
		if presented == "" {
			m.logger.Debug("No API key presented", "path", r.URL.Path)
			m.respondUnauthorized(w, "Authentication required")
			return
		}

		name, ok, err := m.lookup(r.Context(), presented)
		if err != nil {
			m.logger.Error("API key lookup failed", "error", err, "path", r.URL.Path)
			m.respondUnauthorized(w, "Authentication required")
			return
		}
		if !ok {
			m.logger.Warn("Invalid API key", "path", r.URL.Path)
			m.respondUnauthorized(w, "Invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyName, name)
		m.logger.Debug("Request authenticated", "key", name, "path", r.URL.Path)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// KeyNameFromContext returns the name of the API key that authenticated the
// request, if any.
func KeyNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ContextKeyName).(string)
	return name, ok
}

// KeysEqual compares two key values in constant time.
func KeysEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func extractKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return r.Header.Get("X-API-Key")
}

// respondUnauthorized sends a 401 Unauthorized response
func (m *Middleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		m.logger.Error("Failed to encode unauthorized response", "error", err)
	}
}
