package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgeros/console-bfa-go/internal/config"
	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/handler"
	"github.com/ledgeros/console-bfa-go/internal/infra/ledgerapi"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/resilience"
	"github.com/ledgeros/console-bfa-go/internal/infra/snapshot"
	"github.com/ledgeros/console-bfa-go/internal/infra/tokenstore"
	"github.com/ledgeros/console-bfa-go/internal/port"
	"github.com/ledgeros/console-bfa-go/internal/service"
	"github.com/ledgeros/console-bfa-go/internal/session"
	"github.com/ledgeros/console-bfa-go/internal/staging"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ledgeros_api_url", cfg.LedgerAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("snapshot_ttl", cfg.SnapshotTTL),
		zap.String("token_store", cfg.TokenStore),
		zap.Duration("console_jwt_ttl", cfg.ConsoleJWTTTL),
		zap.Strings("console_origins", cfg.ConsoleOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ledgeros-console")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Session token ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := openTokenStore(startCtx, cfg)
	if err != nil {
		logger.Fatal("failed to open token store", zap.String("kind", cfg.TokenStore), zap.Error(err))
	}
	defer closeStore()

	sess := session.New(store, logger)
	if err := sess.Init(startCtx); err != nil {
		logger.Warn("starting logged out", zap.Error(err))
	}
	cancelStart()

	// --- Resilience ---
	cb := resilience.NewCircuitBreaker("ledgeros-api", resilience.Config{MaxConcurrency: cfg.MaxConcurrency}, logger)
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := ledgerapi.NewClient(httpClient, cfg.LedgerAPIURL, sess, cb, bulkhead, metrics, logger)

	// --- Snapshots ---
	var snaps closers
	defer snaps.close()

	categoryAPI := api.Categories()
	loanAPI := api.Loans()
	holdingAPI := api.Holdings()

	accounts := newCollection[domain.Account](&snaps, cfg, "accounts", "account", ledgerapi.NewResource[domain.Account](api, "/accounts"), metrics, logger)
	categories := newCollection[domain.Category](&snaps, cfg, "categories", "category", categoryAPI, metrics, logger)
	loans := newCollection[domain.Loan](&snaps, cfg, "loans", "loan", loanAPI, metrics, logger)

	masters := &service.Masters{
		Profiles:      newCollection[domain.Profile](&snaps, cfg, "profiles", "profile", ledgerapi.NewResource[domain.Profile](api, "/profiles"), metrics, logger),
		BankAccounts:  newCollection[domain.BankAccount](&snaps, cfg, "bank-accounts", "bank account", ledgerapi.NewResource[domain.BankAccount](api, "/bank-accounts"), metrics, logger),
		CreditCards:   newCollection[domain.CreditCard](&snaps, cfg, "credit-cards", "credit card", ledgerapi.NewResource[domain.CreditCard](api, "/credit-cards"), metrics, logger),
		FixedDeposits: newCollection[domain.FixedDeposit](&snaps, cfg, "fixed-deposits", "fixed deposit", ledgerapi.NewResource[domain.FixedDeposit](api, "/fixed-deposits"), metrics, logger),
		GoldHoldings:  newCollection[domain.GoldHolding](&snaps, cfg, "gold-holdings", "gold holding", ledgerapi.NewResource[domain.GoldHolding](api, "/gold-holdings"), metrics, logger),
		GovSchemes:    newCollection[domain.GovScheme](&snaps, cfg, "gov-schemes", "scheme", ledgerapi.NewResource[domain.GovScheme](api, "/gov-schemes"), metrics, logger),
		RealEstate:    newCollection[domain.RealEstate](&snaps, cfg, "real-estate", "property", ledgerapi.NewResource[domain.RealEstate](api, "/real-estate"), metrics, logger),
		TaxDeductions: newCollection[domain.TaxDeduction](&snaps, cfg, "tax-deductions", "deduction", ledgerapi.NewResource[domain.TaxDeduction](api, "/tax-deductions"), metrics, logger),
		Holdings:      newCollection[domain.InvestmentHolding](&snaps, cfg, "investment-holdings", "holding", holdingAPI, metrics, logger),
	}

	txSnaps := snapshot.New[[]domain.Transaction](cfg.SnapshotTTL, metrics)
	rawSnaps := snapshot.New[json.RawMessage](cfg.SnapshotTTL, metrics)
	summarySnaps := snapshot.New[*domain.IncomeExpense](cfg.SnapshotTTL, metrics)
	snaps = append(snaps, txSnaps.Close, rawSnaps.Close, summarySnaps.Close)

	// --- Services ---
	reportAPI := api.Reports()
	txAPI := api.Transactions()

	sessionSvc := service.NewSessionService(api.Auth(), sess, cfg.ConsoleJWTSecret, cfg.ConsoleJWTTTL, logger)
	categorySvc := service.NewCategoryService(categories, categoryAPI, reportAPI, logger)
	accountSvc := service.NewAccountService(accounts, txAPI, cfg.RecentTransactionsLimit, logger)
	txSvc := service.NewTransactionService(txAPI, txSnaps, accounts, categorySvc, metrics, logger)
	importSvc := service.NewImportService(staging.New(), api.Uploads(), accounts, categorySvc, metrics, logger)
	loanSvc := service.NewLoanService(loans, loanAPI, logger)
	portfolioSvc := service.NewPortfolioService(masters.Holdings, holdingAPI, logger)
	reportSvc := service.NewReportService(reportAPI, rawSnaps, summarySnaps, metrics, logger)
	taxSvc := service.NewTaxService(reportSvc, masters.TaxDeductions, logger)
	exportSvc := service.NewExportService(api.Exports(), logger)

	// Whatever the last session loaded must not leak into the next one.
	dropViews := func() {
		masters.Reset()
		accounts.Reset()
		categories.Reset()
		loans.Reset()
		txSvc.Reset()
		reportSvc.Reset()
		importSvc.Discard()
		logger.Info("console views dropped")
	}
	sess.OnExpire(dropViews)
	sessionSvc.OnReset(dropViews)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Session:      sessionSvc,
		Accounts:     accountSvc,
		Categories:   categorySvc,
		Transactions: txSvc,
		Import:       importSvc,
		Loans:        loanSvc,
		Portfolio:    portfolioSvc,
		Tax:          taxSvc,
		Reports:      reportSvc,
		Exports:      exportSvc,
		Masters:      masters,
	}, api, cfg.ConsoleOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}
	sess.Teardown(ctx)

	logger.Info("server stopped")
}

// closers collects the Close funcs of every snapshot store.
type closers []func()

func (c *closers) close() {
	for _, fn := range *c {
		fn()
	}
}

func newCollection[T any](
	snaps *closers,
	cfg *config.Config,
	name, label string,
	api port.Resource[T],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *service.Collection[T] {
	store := snapshot.New[[]T](cfg.SnapshotTTL, metrics)
	*snaps = append(*snaps, store.Close)
	return service.NewCollection[T](name, label, api, store, metrics, logger)
}

// openTokenStore picks the token backend from config. The returned func
// releases it.
func openTokenStore(ctx context.Context, cfg *config.Config) (port.TokenStore, func(), error) {
	switch cfg.TokenStore {
	case "redis":
		store, err := tokenstore.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "file", "":
		return tokenstore.NewFile(cfg.TokenFile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}
