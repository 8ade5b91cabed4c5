package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/http/ban"
	rl "github.com/PeterGeers/myadmin/internal/http/rate_limiter"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestPublicRoutes(t *testing.T) {
	r := NewRouter(Options{Tokens: auth.NewTokens("secret", time.Minute)})

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/swagger/doc.json", http.StatusOK},
		{"/api/transactions", http.StatusUnauthorized},
		{"/admin/users", http.StatusUnauthorized},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	if w := get(r, "/health"); w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if w := get(r, "/swagger/doc.json"); !strings.Contains(w.Body.String(), "myAdmin API") {
		t.Errorf("expected the api title in the swagger document, got %s", w.Body.String())
	}
}

func TestRateLimitAndBan(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	guard := ban.NewGuard(ban.NewMemoryStore(), 2, time.Minute, time.Hour, nil, log)
	r := NewRouter(Options{
		Tokens:  auth.NewTokens("secret", time.Minute),
		Limiter: rl.New(0.001, 1),
		Guard:   guard,
		Log:     log,
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusForbidden, http.StatusForbidden} {
		if w := get(r, "/health"); w.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i+1, want, w.Code)
		}
	}
}

func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	r := NewRouter(Options{Tokens: auth.NewTokens("secret", time.Minute)})

	w := get(r, "/swagger/doc.json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("swagger document is not valid JSON: %v", err)
	}

	routes := r.(chi.Routes)
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/swagger/") {
			return nil
		}
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		if _, ok := doc.Paths[route][strings.ToLower(method)]; !ok {
			t.Errorf("%s %s is not documented", method, route)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk routes: %v", err)
	}
}
