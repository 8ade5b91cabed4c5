package handlers

import (
	"context"
	"io"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/bankimport"
	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/documents"
	"github.com/PeterGeers/myadmin/internal/reports"
	repo "github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/str"
	"github.com/sirupsen/logrus"
)

var (
	txRepo      repo.TransactionRepository
	accountRepo repo.AccountRepository
	bankRepo    repo.BankAccountRepository
	bookingRepo repo.BookingRepository

	authService   *auth.AuthService
	importer      *bankimport.Importer
	bookings      *str.Service
	reportService *reports.Service
	docStore      documents.Store

	ledgerCache  *cache.LedgerCache
	bookingCache *cache.BookingCache

	logger logrus.FieldLogger = newDiscardLogger()
)

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func SetTransactionRepo(r repo.TransactionRepository) {
	txRepo = r
}

func SetAccountRepo(r repo.AccountRepository) {
	accountRepo = r
}

func SetBankAccountRepo(r repo.BankAccountRepository) {
	bankRepo = r
}

func SetBookingRepo(r repo.BookingRepository) {
	bookingRepo = r
}

func SetAuthService(a *auth.AuthService) {
	authService = a
}

func SetImporter(im *bankimport.Importer) {
	importer = im
}

func SetBookingService(s *str.Service) {
	bookings = s
}

func SetReportService(s *reports.Service) {
	reportService = s
}

func SetDocumentStore(s documents.Store) {
	docStore = s
}

func SetCaches(ledger *cache.LedgerCache, booking *cache.BookingCache) {
	ledgerCache = ledger
	bookingCache = booking
}

func SetLogger(l logrus.FieldLogger) {
	logger = l
}

// LedgerChanged drops cached ledger data and the administration's reports.
func LedgerChanged(ctx context.Context, administration string) {
	if ledgerCache != nil {
		ledgerCache.Invalidate()
	}
	if reportService != nil {
		reportService.Invalidate(ctx, administration)
	}
}

// BookingsChanged drops cached bookings and the administration's reports.
func BookingsChanged(ctx context.Context, administration string) {
	if bookingCache != nil {
		bookingCache.Invalidate()
	}
	if reportService != nil {
		reportService.Invalidate(ctx, administration)
	}
}
