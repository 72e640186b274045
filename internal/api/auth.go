package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antigravity-dev/taskhub/internal/config"
)

// AuthMiddleware enforces bearer-token auth (when enabled) and local-only
// binding (when auth is disabled and the bind address isn't local), and
// writes an audit log entry per request when configured.
type AuthMiddleware struct {
	cfg       *config.API
	logger    *slog.Logger
	auditFile *os.File
}

// NewAuthMiddleware builds an AuthMiddleware from cfg, opening the audit
// log file if configured.
func NewAuthMiddleware(cfg *config.API, logger *slog.Logger) (*AuthMiddleware, error) {
	am := &AuthMiddleware{cfg: cfg, logger: logger}

	if cfg.AuditLog != "" {
		f, err := os.OpenFile(config.ExpandHome(cfg.AuditLog), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log %q: %w", cfg.AuditLog, err)
		}
		am.auditFile = f
	}
	return am, nil
}

// Close closes the audit log file.
func (am *AuthMiddleware) Close() error {
	if am.auditFile != nil {
		return am.auditFile.Close()
	}
	return nil
}

// AuditEvent is one request's audit trail entry.
type AuditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	RemoteAddr string    `json:"remote_addr"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	HunterID   string    `json:"hunter_id,omitempty"`
	Namespace  string    `json:"namespace,omitempty"`
	Authorized bool      `json:"authorized"`
	Token      string    `json:"token,omitempty"`
	Error      string    `json:"error,omitempty"`
	Duration   string    `json:"duration"`
}

func (am *AuthMiddleware) logAuditEvent(event AuditEvent) {
	if am.auditFile == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		am.logger.Error("failed to marshal audit event", "error", err)
		return
	}
	if _, err := am.auditFile.Write(append(data, '\n')); err != nil {
		am.logger.Error("failed to write audit event", "error", err)
	}
}

func truncateToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "****"
}

func isLocalRequest(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func (am *AuthMiddleware) isValidToken(token string) bool {
	if token == "" {
		return false
	}
	for _, allowed := range am.cfg.AllowedTokens {
		if token == allowed {
			return true
		}
	}
	return false
}

// Middleware wraps every /v1/... request with auth enforcement and an
// audit log entry. Every operation under /v1 is a control endpoint here —
// unlike the teacher's dashboard API (mostly read-only with a handful of
// write endpoints), Taskhub's entire surface reads or mutates per-namespace
// state on behalf of a specific hunter_id, so there's no unauthenticated subset.
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		event := AuditEvent{
			Timestamp:  start,
			RemoteAddr: r.RemoteAddr,
			Method:     r.Method,
			Path:       r.URL.Path,
			HunterID:   r.Header.Get("hunter_id"),
			Namespace:  r.Header.Get("taskhub_namespace"),
		}
		defer func() {
			event.Duration = time.Since(start).String()
			am.logAuditEvent(event)
		}()

		if !am.cfg.AuthEnabled {
			if am.cfg.RequireLocalOnly && !isLocalRequest(r.RemoteAddr) {
				event.Authorized = false
				event.Error = "non-local request rejected (require_local_only=true)"
				writeError(w, http.StatusForbidden, "access denied: non-local requests not allowed")
				return
			}
			event.Authorized = true
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		event.Token = truncateToken(token)
		if !am.isValidToken(token) {
			event.Authorized = false
			event.Error = "invalid or missing token"
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "unauthorized: valid token required")
			return
		}
		event.Authorized = true
		next.ServeHTTP(w, r)
	})
}
