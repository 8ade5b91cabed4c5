package handlers_integrated_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/bankimport"
	"github.com/PeterGeers/myadmin/internal/cache"
	handler "github.com/PeterGeers/myadmin/internal/http/handlers"
	"github.com/PeterGeers/myadmin/internal/http/router"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/PeterGeers/myadmin/internal/reports"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// The suite runs against an existing database with the production schema,
// selected with DATABASE_DRIVER and DATABASE_URL. Rows are written under a
// dedicated administration and removed afterwards.
const tenant = "IntegrationTest"

var (
	r        http.Handler
	token    string
	database *sqlx.DB
	txRepo   *repo.SQLTransactionRepository
	accounts *repo.SQLAccountRepository
)

func setup() {
	log := logrus.New()
	log.SetOutput(io.Discard)

	txRepo = repo.NewSQLTransactionRepository(database)
	accounts = repo.NewSQLAccountRepository(database)
	banks := repo.NewSQLBankAccountRepository(database)
	bookings := repo.NewSQLBookingRepository(database)
	users := repo.NewSQLUserRepository(database)
	rates, _ := taxrates.Default()

	ledger := cache.NewLedgerCache(repo.NewSQLLedgerRepository(database), time.Minute, log)
	bookingCache := cache.NewBookingCache(bookings, time.Minute, log)
	tokens := auth.NewTokens("integration-secret", 15*time.Minute)

	handler.SetLogger(log)
	handler.SetTransactionRepo(txRepo)
	handler.SetAccountRepo(accounts)
	handler.SetBankAccountRepo(banks)
	handler.SetBookingRepo(bookings)
	handler.SetAuthService(auth.NewAuthService(users, tokens, auth.NewMemoryRefreshStore(), time.Hour))
	handler.SetImporter(bankimport.NewImporter(txRepo, banks, accounts, log))
	handler.SetReportService(reports.NewService(ledger, bookingCache, txRepo, rates, redissvc.NewMemoryReportCache(time.Minute), log))
	handler.SetCaches(ledger, bookingCache)

	cleanup()
	createUser(users, "integration-admin", "secret")
	for _, a := range []models.Account{
		{Account: "1002", AccountName: "Bank", VW: models.VWBalance},
		{Account: "4020", AccountName: "Telefoon", VW: models.VWProfitLoss},
	} {
		a.Administration = tenant
		if _, err := accounts.Create(context.Background(), a); err != nil {
			fmt.Println("seed account:", err)
		}
	}

	r = router.NewRouter(router.Options{Tokens: tokens, Log: log})
	var err error
	token, err = generateToken(r, "integration-admin", "secret")
	if err != nil {
		panic(fmt.Sprintf("error generating token: %v", err))
	}
}

func createUser(users *repo.SQLUserRepository, username, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	_, err := users.CreateUser(context.Background(), models.User{
		Username:     username,
		PasswordHash: string(hash),
		Roles:        []string{models.RoleFinanceCRUD, models.RoleFinanceExport},
		Tenants:      []string{tenant},
	})
	if err != nil {
		fmt.Println("error creating user", err)
	}
}

func cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for _, q := range []string{
		"DELETE FROM mutaties WHERE Administration = ?",
		"DELETE FROM rekeningschema WHERE Administration = ?",
		"DELETE FROM lookupbankaccounts WHERE Administration = ?",
		"DELETE FROM users WHERE tenants = ?",
	} {
		if _, err := database.ExecContext(ctx, database.Rebind(q), tenant); err != nil {
			fmt.Println(fmt.Errorf("cleanup failed: %w", err))
		}
	}
}

func clearTransactions() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := database.ExecContext(ctx, database.Rebind("DELETE FROM mutaties WHERE Administration = ?"), tenant); err != nil {
		fmt.Println(fmt.Errorf("failed to delete transactions: %w", err))
	}
}

func generateToken(r http.Handler, username, password string) (string, error) {
	payload := handler.CredentialsRequest{Username: username, Password: password}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp auth.TokenPair
	err := json.NewDecoder(w.Body).Decode(&resp)
	if err != nil {
		return "", fmt.Errorf("token decoding failed: %v", err)
	}
	return resp.Token, nil
}

func send(method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
