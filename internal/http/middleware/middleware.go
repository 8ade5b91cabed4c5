package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/http/ban"
	rl "github.com/PeterGeers/myadmin/internal/http/rate_limiter"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestInfoKey = contextKey("request_info")
	claimsKey      = contextKey("claims")
	tenantKey      = contextKey("tenant")
)

const TenantHeader = "X-Tenant"

// requestInfo is shared by pointer so outer middleware can log values
// resolved further down the chain.
type requestInfo struct {
	id     string
	user   string
	tenant string
}

type ErrorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestInfoKey, &requestInfo{id: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func info(ctx context.Context) *requestInfo {
	if ri, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return ri
	}
	return &requestInfo{}
}

func RequestIDFrom(ctx context.Context) string {
	return info(ctx).id
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func Logger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			ri := info(r.Context())
			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
				"request_id":  ri.id,
			})
			if ri.user != "" {
				entry = entry.WithField("user", ri.user)
			}
			if ri.tenant != "" {
				entry = entry.WithField("tenant", ri.tenant)
			}
			switch {
			case sw.status >= 500:
				entry.Error("http request")
			case sw.status >= 400:
				entry.Warn("http request")
			default:
				entry.Info("http request")
			}
		})
	}
}

func Recovery(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithFields(logrus.Fields{
						"panic":      rec,
						"method":     r.Method,
						"path":       r.URL.Path,
						"request_id": RequestIDFrom(r.Context()),
					}).Error("panic recovered")
					WriteError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the rate limit key: the remote host without port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects clients over their token bucket with 429. Each
// rejection is a strike; enough strikes ban the client (403).
func RateLimit(limiter *rl.Limiter, guard *ban.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if guard != nil && guard.IsBanned(r.Context(), ip) {
				WriteError(w, http.StatusForbidden, "temporarily banned")
				return
			}
			if !limiter.Allow(ip) {
				if guard != nil && guard.Strike(r.Context(), ip, r.URL.Path) {
					WriteError(w, http.StatusForbidden, "temporarily banned")
					return
				}
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Auth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.TokenClaims(r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			info(r.Context()).user = claims.Username
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

var (
	errTenantAmbiguous = errors.New("X-Tenant header is required")
	errTenantForbidden = errors.New("no access to administration")
)

func resolveTenant(header string, tenants []string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		if len(tenants) == 1 {
			return tenants[0], nil
		}
		return "", errTenantAmbiguous
	}
	if !slices.Contains(tenants, header) {
		return "", errTenantForbidden
	}
	return header, nil
}

// Tenant resolves the administration for the request from X-Tenant and the
// token's tenant list. Must run after Auth.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil {
			WriteError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		tenant, err := resolveTenant(r.Header.Get(TenantHeader), claims.Tenants)
		switch {
		case errors.Is(err, errTenantAmbiguous):
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			WriteError(w, http.StatusForbidden, err.Error())
			return
		}
		info(r.Context()).tenant = tenant
		ctx := context.WithValue(r.Context(), tenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TenantFrom(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey).(string)
	return tenant
}

// WithTenant is used by tests that call handlers without the middleware chain.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// RequireRole passes when the token grants any of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				WriteError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			for _, role := range roles {
				if models.HasRole(claims.Roles, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "forbidden")
		})
	}
}
