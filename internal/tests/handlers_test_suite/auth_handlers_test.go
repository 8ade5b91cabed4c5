package handlers_test_suite

import (
	"net/http"
	"testing"

	"github.com/PeterGeers/myadmin/internal/auth"
	handler "github.com/PeterGeers/myadmin/internal/http/handlers"
	"github.com/PeterGeers/myadmin/internal/models"
)

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	t.Run("Login with valid credentials", func(t *testing.T) {
		pair, code := s.login("admin", "secret")
		if code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", code)
		}
		if pair.Token == "" || pair.RefreshToken == "" {
			t.Errorf("expected both tokens, got %+v", pair)
		}
	})

	t.Run("Login with wrong password", func(t *testing.T) {
		if _, code := s.login("admin", "wrong"); code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", code)
		}
	})

	t.Run("Login with unknown user", func(t *testing.T) {
		if _, code := s.login("nobody", "secret"); code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", code)
		}
	})

	t.Run("Protected route without token is rejected", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/accounts", "", goodwin, nil)
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("Refresh token is single use", func(t *testing.T) {
		pair, _ := s.login("admin", "secret")

		w := s.do(http.MethodPost, "/token/refresh", "", "", handler.RefreshRequest{RefreshToken: pair.RefreshToken})
		expectStatus(t, w, http.StatusOK)
		next := decode[auth.TokenPair](t, w)
		if next.RefreshToken == pair.RefreshToken {
			t.Error("expected a rotated refresh token")
		}

		w = s.do(http.MethodPost, "/token/refresh", "", "", handler.RefreshRequest{RefreshToken: pair.RefreshToken})
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("Refresh without token", func(t *testing.T) {
		w := s.do(http.MethodPost, "/token/refresh", "", "", handler.RefreshRequest{})
		expectStatus(t, w, http.StatusBadRequest)
	})
}

func TestCreateUserHandler(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, "admin", "secret")
	reader := s.token(t, "reader", "secret")

	valid := handler.CreateUserRequest{
		Username: "bookkeeper",
		Password: "s3cret!",
		Roles:    []string{models.RoleFinanceCRUD},
		Tenants:  []string{goodwin},
	}

	tests := []struct {
		name       string
		token      string
		payload    handler.CreateUserRequest
		expectCode int
	}{
		{"Non admin is forbidden", reader, valid, http.StatusForbidden},
		{"Admin creates user", admin, valid, http.StatusCreated},
		{"Duplicate username", admin, valid, http.StatusConflict},
		{"Unknown role", admin, handler.CreateUserRequest{Username: "other", Password: "s3cret!", Roles: []string{"Root"}, Tenants: []string{goodwin}}, http.StatusBadRequest},
		{"Missing tenant", admin, handler.CreateUserRequest{Username: "other", Password: "s3cret!", Roles: []string{models.RoleSTRRead}}, http.StatusBadRequest},
		{"Short password", admin, handler.CreateUserRequest{Username: "other", Password: "abc", Roles: []string{models.RoleSTRRead}, Tenants: []string{goodwin}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/admin/users", tt.token, "", tt.payload)
			expectStatus(t, w, tt.expectCode)
		})
	}

	t.Run("Created user can log in", func(t *testing.T) {
		bookkeeper := s.token(t, "bookkeeper", "s3cret!")
		w := s.do(http.MethodGet, "/api/accounts", bookkeeper, "", nil)
		expectStatus(t, w, http.StatusOK)
	})
}

func TestTenantResolution(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	admin := s.token(t, "admin", "secret")
	reader := s.token(t, "reader", "secret")

	tests := []struct {
		name       string
		token      string
		tenant     string
		expectCode int
	}{
		{"Single tenant needs no header", reader, "", http.StatusOK},
		{"Own tenant", reader, goodwin, http.StatusOK},
		{"Foreign tenant", reader, prive, http.StatusForbidden},
		{"Several tenants need the header", admin, "", http.StatusBadRequest},
		{"Admin picks a tenant", admin, prive, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/accounts", tt.token, tt.tenant, nil)
			expectStatus(t, w, tt.expectCode)
		})
	}

	t.Run("Reader cannot write", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/accounts", reader, "", models.Account{Account: "9999", AccountName: "X", VW: "Y"})
		expectStatus(t, w, http.StatusForbidden)
	})
}
