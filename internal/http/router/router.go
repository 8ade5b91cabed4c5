package router

import (
	"io"
	"net/http"

	_ "github.com/PeterGeers/myadmin/docs"
	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/http/ban"
	"github.com/PeterGeers/myadmin/internal/http/handlers"
	mw "github.com/PeterGeers/myadmin/internal/http/middleware"
	rl "github.com/PeterGeers/myadmin/internal/http/rate_limiter"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Options carries what the middleware stack needs. Limiter and Guard are
// optional; without a limiter requests are not throttled.
type Options struct {
	Tokens  *auth.Tokens
	Limiter *rl.Limiter
	Guard   *ban.Guard
	Log     logrus.FieldLogger
}

func NewRouter(opts Options) http.Handler {
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logger(opts.Log))
	r.Use(mw.Recovery(opts.Log))
	if opts.Limiter != nil {
		r.Use(mw.RateLimit(opts.Limiter, opts.Guard))
	}

	// Public routes
	r.Get("/health", handlers.HealthHandler)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Post("/login", handlers.LoginHandler)
	r.Post("/token/refresh", handlers.RefreshTokenHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Auth(opts.Tokens))
		r.Use(mw.RequireRole(models.RoleSysAdmin))
		r.Post("/users", handlers.CreateUserHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Auth(opts.Tokens))
		r.Use(mw.Tenant)

		financeRead := mw.RequireRole(models.RoleFinanceRead)
		financeCRUD := mw.RequireRole(models.RoleFinanceCRUD)
		strRead := mw.RequireRole(models.RoleSTRRead)
		strCRUD := mw.RequireRole(models.RoleSTRCRUD)

		r.Route("/transactions", func(r chi.Router) {
			r.With(financeRead).Get("/", handlers.ListTransactionsHandler)
			r.With(financeCRUD).Post("/", handlers.CreateTransactionHandler)
			r.With(mw.RequireRole(models.RoleFinanceExport, models.RoleFinanceRead)).Get("/export", handlers.ExportTransactionsHandler)
			r.With(financeRead).Get("/{id}", handlers.GetTransactionHandler)
			r.With(financeCRUD).Put("/{id}", handlers.UpdateTransactionHandler)
			r.With(financeCRUD).Delete("/{id}", handlers.DeleteTransactionHandler)
			r.With(financeCRUD).Post("/{id}/document", handlers.UploadDocumentHandler)
		})

		r.With(financeRead).Get("/accounts", handlers.ListAccountsHandler)
		r.With(financeCRUD).Post("/accounts", handlers.CreateAccountHandler)
		r.With(financeCRUD).Put("/accounts/{code}", handlers.UpdateAccountHandler)
		r.With(financeCRUD).Delete("/accounts/{code}", handlers.DeleteAccountHandler)

		r.With(financeRead).Get("/bank-accounts", handlers.ListBankAccountsHandler)
		r.With(financeCRUD).Post("/bank-accounts", handlers.CreateBankAccountHandler)
		r.With(financeCRUD).Delete("/bank-accounts/{iban}", handlers.DeleteBankAccountHandler)

		r.With(financeCRUD).Post("/import/bank", handlers.PreviewBankImportHandler)
		r.With(financeCRUD).Post("/import/bank/commit", handlers.CommitBankImportHandler)
		r.With(financeRead).Post("/patterns/analyze", handlers.AnalyzePatternsHandler)
		r.With(financeRead).Get("/patterns/stats", handlers.PatternStatsHandler)

		r.Route("/bookings", func(r chi.Router) {
			r.With(strRead).Get("/", handlers.ListBookingsHandler)
			r.With(strCRUD).Post("/", handlers.CreateBookingHandler)
			r.With(strCRUD).Post("/import", handlers.ImportBookingsHandler)
			r.With(strRead).Get("/summary", handlers.BookingSummaryHandler)
			r.With(strRead).Get("/{id}", handlers.GetBookingHandler)
			r.With(strCRUD).Put("/{id}", handlers.UpdateBookingHandler)
			r.With(strCRUD).Delete("/{id}", handlers.DeleteBookingHandler)
		})

		r.Route("/reports", func(r chi.Router) {
			r.With(financeRead).Get("/btw", handlers.BTWReportHandler)
			r.With(financeCRUD).Post("/btw/book", handlers.BookBTWHandler)
			r.With(financeRead).Get("/aangifte-ib", handlers.AangifteIBHandler)
			r.With(mw.RequireRole(models.RoleSTRRead, models.RoleFinanceRead)).Get("/tourist-tax", handlers.TouristTaxHandler)
			r.With(financeRead).Get("/actuals", handlers.ActualsHandler)
			r.With(financeRead).Get("/balance", handlers.BalanceHandler)
		})

		r.With(mw.RequireRole(models.RoleFinanceRead, models.RoleSTRRead)).Get("/cache/status", handlers.CacheStatusHandler)
		r.With(mw.RequireRole(models.RoleFinanceCRUD, models.RoleSTRCRUD)).Post("/cache/refresh", handlers.CacheRefreshHandler)
	})

	return r
}
