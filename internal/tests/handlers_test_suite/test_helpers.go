package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/bankimport"
	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/documents"
	handler "github.com/PeterGeers/myadmin/internal/http/handlers"
	"github.com/PeterGeers/myadmin/internal/http/router"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/PeterGeers/myadmin/internal/reports"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/str"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	goodwin = "GoodwinSolutions"
	prive   = "PeterPrive"
)

type server struct {
	r        http.Handler
	txs      *repo.InMemoryTransactionRepository
	accounts *repo.InMemoryAccountRepository
	banks    *repo.InMemoryBankAccountRepository
	bookings *repo.InMemoryBookingRepository
	users    *repo.InMemoryUserRepository
	docsDir  string
}

// newServer wires the handlers onto fresh in-memory repositories and seeds
// an admin and a read-only user. The handlers keep package state, so tests
// in this package do not run in parallel.
func newServer(t *testing.T) *server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := &server{
		txs:      repo.NewInMemoryTransactionRepository(),
		accounts: repo.NewInMemoryAccountRepository(),
		banks:    repo.NewInMemoryBankAccountRepository(),
		bookings: repo.NewInMemoryBookingRepository(),
		users:    repo.NewInMemoryUserRepository(),
		docsDir:  t.TempDir(),
	}
	rates, err := taxrates.Default()
	if err != nil {
		t.Fatalf("tax rates: %v", err)
	}

	ledger := cache.NewLedgerCache(repo.NewInMemoryLedgerRepository(s.txs, s.accounts), time.Hour, log)
	bookingCache := cache.NewBookingCache(s.bookings, time.Hour, log)
	reportService := reports.NewService(ledger, bookingCache, s.txs, rates, redissvc.NewMemoryReportCache(time.Hour), log)
	tokens := auth.NewTokens("test-secret", 15*time.Minute)

	im := bankimport.NewImporter(s.txs, s.banks, s.accounts, log)
	im.OnCommit(func(admin string) { handler.LedgerChanged(context.Background(), admin) })
	bookingService := str.NewService(s.bookings, rates, log)
	bookingService.OnChange(func(admin string) { handler.BookingsChanged(context.Background(), admin) })

	handler.SetLogger(log)
	handler.SetTransactionRepo(s.txs)
	handler.SetAccountRepo(s.accounts)
	handler.SetBankAccountRepo(s.banks)
	handler.SetBookingRepo(s.bookings)
	handler.SetAuthService(auth.NewAuthService(s.users, tokens, auth.NewMemoryRefreshStore(), time.Hour))
	handler.SetImporter(im)
	handler.SetBookingService(bookingService)
	handler.SetReportService(reportService)
	handler.SetDocumentStore(documents.NewLocalStore(s.docsDir))
	handler.SetCaches(ledger, bookingCache)

	s.addUser(t, "admin", "secret", []string{models.RoleSysAdmin}, []string{goodwin, prive})
	s.addUser(t, "reader", "secret", []string{models.RoleFinanceRead}, []string{goodwin})
	s.r = router.NewRouter(router.Options{Tokens: tokens, Log: log})
	return s
}

func (s *server) addUser(t *testing.T, username, password string, roles, tenants []string) {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if _, err := s.users.CreateUser(context.Background(), models.User{
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		Tenants:      tenants,
	}); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

// seedChart creates the accounts used across the suite in both
// administrations.
func (s *server) seedChart(t *testing.T) {
	t.Helper()
	chart := []models.Account{
		{Account: "1002", AccountName: "Rabobank", VW: models.VWBalance},
		{Account: "1300", AccountName: "Belastingdienst", VW: models.VWBalance},
		{Account: "2010", AccountName: "BTW af te dragen", VW: models.VWBalance},
		{Account: "2020", AccountName: "BTW hoog", VW: models.VWBalance},
		{Account: "4020", AccountName: "Telefoon", VW: models.VWProfitLoss},
		{Account: "8001", AccountName: "Omzet", VW: models.VWProfitLoss},
	}
	for _, admin := range []string{goodwin, prive} {
		for _, a := range chart {
			a.Administration = admin
			if _, err := s.accounts.Create(context.Background(), a); err != nil {
				t.Fatalf("seed account: %v", err)
			}
		}
	}
	if _, err := s.banks.Create(context.Background(), models.BankAccount{IBAN: "NL01RABO0123456789", Account: "1002", Bank: "Rabobank", Administration: goodwin}); err != nil {
		t.Fatalf("seed bank account: %v", err)
	}
}

func (s *server) addTransaction(t *testing.T, admin string, date models.Date, desc string, amount int64, debet, credit string) models.Transaction {
	t.Helper()
	tx, err := s.txs.Create(context.Background(), models.Transaction{
		TransactionDate:        date,
		TransactionDescription: desc,
		TransactionAmount:      decimal.NewFromInt(amount),
		Debet:                  debet,
		Credit:                 credit,
		Administration:         admin,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func (s *server) token(t *testing.T, username, password string) string {
	t.Helper()
	pair, code := s.login(username, password)
	if code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", username, code)
	}
	return pair.Token
}

func (s *server) login(username, password string) (auth.TokenPair, int) {
	body, _ := json.Marshal(handler.CredentialsRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var pair auth.TokenPair
	_ = json.NewDecoder(w.Body).Decode(&pair)
	return pair, w.Code
}

// do sends a request as the bearer of token. A non-empty tenant sets
// X-Tenant.
func (s *server) do(method, path, token, tenant string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant", tenant)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *server) upload(path, token, tenant, filename, content string) *httptest.ResponseRecorder {
	buf, contentType := multipartFile(content, filename)
	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	if tenant != "" {
		req.Header.Set("X-Tenant", tenant)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func multipartFile(content string, filename string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, _ := writer.CreateFormFile("file", filename)
	part.Write([]byte(content))

	writer.Close()
	return &buf, writer.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("error decoding response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
