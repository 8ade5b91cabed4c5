package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/bankimport"
	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/config"
	"github.com/PeterGeers/myadmin/internal/db"
	"github.com/PeterGeers/myadmin/internal/documents"
	"github.com/PeterGeers/myadmin/internal/http/ban"
	"github.com/PeterGeers/myadmin/internal/http/handlers"
	rl "github.com/PeterGeers/myadmin/internal/http/rate_limiter"
	"github.com/PeterGeers/myadmin/internal/http/router"
	"github.com/PeterGeers/myadmin/internal/jobs"
	"github.com/PeterGeers/myadmin/internal/logging"
	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/PeterGeers/myadmin/internal/reports"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/str"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/sirupsen/logrus"

	_ "github.com/PeterGeers/myadmin/docs"
)

const visitorIdle = 10 * time.Minute

// idleVisitors adapts the limiter to the scheduler's cleanup hook.
type idleVisitors struct{ l *rl.Limiter }

func (v idleVisitors) Cleanup() int { return v.l.Cleanup(visitorIdle) }

// @title myAdmin API
// @version 1.0
// @description Bookkeeping backend for multiple administrations: transactions, bank import, short-term rental bookings and tax reports.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer database.Close()

	txRepo := repo.NewSQLTransactionRepository(database)
	accounts := repo.NewSQLAccountRepository(database)
	banks := repo.NewSQLBankAccountRepository(database)
	bookings := repo.NewSQLBookingRepository(database)
	users := repo.NewSQLUserRepository(database)

	var (
		results  reports.ResultCache = redissvc.NewMemoryReportCache(cfg.ReportCacheTTL)
		refresh  auth.RefreshStore
		banStore ban.Store = ban.NewMemoryStore()
		cleaners []jobs.Cleaner
	)
	if cfg.RedisAddr != "" {
		rs, err := redissvc.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-memory stores")
		} else {
			defer rs.Close()
			results = redissvc.NewReportCache(rs, cfg.ReportCacheTTL)
			refresh = auth.NewRedisRefreshStore(rs)
			banStore = ban.NewRedisStore(rs)
			log.WithField("addr", cfg.RedisAddr).Info("redis connected")
		}
	}
	if refresh == nil {
		mem := auth.NewMemoryRefreshStore()
		refresh = mem
		cleaners = append(cleaners, mem)
	}

	rates, err := taxrates.Load(cfg.TaxRatesFile)
	if err != nil {
		log.WithError(err).Fatal("could not load tax rates")
	}

	ledger := cache.NewLedgerCache(repo.NewSQLLedgerRepository(database), cfg.LedgerCacheTTL, log)
	bookingCache := cache.NewBookingCache(bookings, cfg.BookingCacheTTL, log)
	reportService := reports.NewService(ledger, bookingCache, txRepo, rates, results, log)

	importer := bankimport.NewImporter(txRepo, banks, accounts, log)
	importer.OnCommit(func(admin string) { handlers.LedgerChanged(context.Background(), admin) })
	bookingService := str.NewService(bookings, rates, log)
	bookingService.OnChange(func(admin string) { handlers.BookingsChanged(context.Background(), admin) })

	var store documents.Store = documents.NewLocalStore(cfg.DocumentsDir)
	if cfg.DocumentStore == "drive" {
		drive, err := documents.NewDriveStore(ctx, cfg.DriveCredentials, cfg.DriveFolder)
		if err != nil {
			log.WithError(err).Fatal("could not open drive document store")
		}
		store = drive
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTTL)

	handlers.SetLogger(log)
	handlers.SetTransactionRepo(txRepo)
	handlers.SetAccountRepo(accounts)
	handlers.SetBankAccountRepo(banks)
	handlers.SetBookingRepo(bookings)
	handlers.SetAuthService(auth.NewAuthService(users, tokens, refresh, cfg.RefreshTTL))
	handlers.SetImporter(importer)
	handlers.SetBookingService(bookingService)
	handlers.SetReportService(reportService)
	handlers.SetDocumentStore(store)
	handlers.SetCaches(ledger, bookingCache)

	limiter := rl.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	guard := ban.NewGuard(banStore, cfg.BanStrikes, cfg.BanWindow, cfg.BanDuration, ban.NewMailer(cfg.Mail), log)
	cleaners = append(cleaners, idleVisitors{limiter})

	scheduler := jobs.New(jobs.Config{
		Timezone:     cfg.JobsTimezone,
		CacheRefresh: cfg.CacheRefreshCron,
		BanSummary:   cfg.BanSummaryCron,
		TokenCleanup: cfg.TokenCleanupCron,
	}, log)
	for _, add := range []func() error{
		func() error { return scheduler.AddCacheRefresh(ledger, bookingCache) },
		func() error { return scheduler.AddBanSummary(guard) },
		func() error { return scheduler.AddCleanup(cleaners...) },
	} {
		if err := add(); err != nil {
			log.WithError(err).Fatal("could not schedule job")
		}
	}

	// Load the caches before serving.
	if err := jobs.RefreshAll(ctx, ledger, bookingCache); err != nil {
		log.WithError(err).Warn("initial cache load failed")
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(router.Options{Tokens: tokens, Limiter: limiter, Guard: guard, Log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	scheduler.Stop(shutdownCtx)
}
