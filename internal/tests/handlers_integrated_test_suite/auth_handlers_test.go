package handlers_integrated_test_suite

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PeterGeers/myadmin/internal/http/handlers"
)

func TestAuthFlow(t *testing.T) {
	t.Run("Login with wrong password", func(t *testing.T) {
		body, _ := json.Marshal(handlers.CredentialsRequest{Username: "integration-admin", Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 Unauthorized, got %d", w.Code)
		}
	})

	t.Run("Protected route without token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 Unauthorized, got %d", w.Code)
		}
	})

	t.Run("Protected route with valid token succeeds", func(t *testing.T) {
		w := send(http.MethodGet, "/api/accounts", nil)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200 OK, got %d", w.Code)
		}
	})

	t.Run("Admin route requires SysAdmin", func(t *testing.T) {
		w := send(http.MethodPost, "/admin/users", handlers.CreateUserRequest{Username: "x", Password: "y"})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403 Forbidden, got %d", w.Code)
		}
	})
}
