package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/http/ban"
	rl "github.com/PeterGeers/myadmin/internal/http/rate_limiter"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var tokens = auth.NewTokens("middleware-secret", time.Minute)

func bearer(t *testing.T, roles, tenants []string) string {
	t.Helper()
	token, err := tokens.Generate(models.User{ID: 1, Username: "peter", Roles: roles, Tenants: tenants})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func tenantEcho(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(TenantFrom(r.Context())))
}

func TestAuthTenantAndRoles(t *testing.T) {
	h := RequestID(Auth(tokens)(Tenant(RequireRole(models.RoleFinanceRead)(http.HandlerFunc(tenantEcho)))))
	two := []string{"GoodwinSolutions", "PeterPrive"}

	tests := []struct {
		name   string
		auth   string
		tenant string
		status int
		body   string
	}{
		{"no token", "", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"single tenant default", bearer(t, []string{models.RoleFinanceCRUD}, two[:1]), "", http.StatusOK, "GoodwinSolutions"},
		{"ambiguous tenant", bearer(t, []string{models.RoleFinanceRead}, two), "", http.StatusBadRequest, ""},
		{"explicit tenant", bearer(t, []string{models.RoleFinanceRead}, two), "PeterPrive", http.StatusOK, "PeterPrive"},
		{"foreign tenant", bearer(t, []string{models.RoleFinanceRead}, two), "Other", http.StatusForbidden, ""},
		{"missing role", bearer(t, []string{models.RoleSTRRead}, two[:1]), "", http.StatusForbidden, ""},
		{"sysadmin", bearer(t, []string{models.RoleSysAdmin}, two[:1]), "", http.StatusOK, "GoodwinSolutions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.tenant != "" {
				req.Header.Set(TenantHeader, tt.tenant)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Errorf("expected tenant %q, got %q", tt.body, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("expected request id header")
			}
			if rr.Code != http.StatusOK {
				var resp ErrorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Success || resp.Error == "" {
					t.Errorf("expected error envelope, got %s", rr.Body.String())
				}
			}
		})
	}
}

func TestRateLimitAndBan(t *testing.T) {
	log, _ := test.NewNullLogger()
	guard := ban.NewGuard(ban.NewMemoryStore(), 2, time.Minute, time.Hour, nil, log)
	h := RateLimit(rl.New(0.0001, 1), guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	want := []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusForbidden, http.StatusForbidden}
	for i, status := range want {
		if got := call("10.1.1.1:5000"); got != status {
			t.Errorf("request %d: expected %d, got %d", i+1, status, got)
		}
	}
	if got := call("10.1.1.2:5000"); got != http.StatusNoContent {
		t.Errorf("other client should pass, got %d", got)
	}
}

func TestRecoveryAndLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := RequestID(Logger(log)(Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/btw", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("expected supplied request id to be echoed")
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected panic and request log entries, got %d", len(entries))
	}
	if entries[0].Message != "panic recovered" || entries[0].Data["request_id"] != "req-42" {
		t.Errorf("unexpected panic entry %+v", entries[0])
	}
	if entries[1].Level != logrus.ErrorLevel || entries[1].Data["status"] != http.StatusInternalServerError {
		t.Errorf("unexpected request entry %+v", entries[1])
	}
}
