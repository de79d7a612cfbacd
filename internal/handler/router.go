package handler

import (
	"net/http"
	"time"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Upstream reports the state of the LedgerOS connection for /readyz.
type Upstream interface {
	CircuitState() string
}

// Services are the use cases the console routes reach.
type Services struct {
	Session      *service.SessionService
	Accounts     *service.AccountService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Import       *service.ImportService
	Loans        *service.LoanService
	Portfolio    *service.PortfolioService
	Tax          *service.TaxService
	Reports      *service.ReportService
	Exports      *service.ExportService
	Masters      *service.Masters
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, upstream Upstream, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(upstream))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/console", consoleMetricsHandler(svc.Session, metrics))

		// =============================================
		// Session gate (public)
		// =============================================
		r.Get("/session", sessionStatusHandler(svc.Session, logger))
		r.Post("/session/setup", sessionSetupHandler(svc.Session, logger))
		r.Post("/session/login", sessionLoginHandler(svc.Session, logger))

		// Everything else needs a console token bound to the live session.
		r.Group(func(r chi.Router) {
			r.Use(ConsoleAuthMiddleware(svc.Session, logger))

			r.Post("/session/logout", sessionLogoutHandler(svc.Session, logger))
			r.Post("/session/change-password", changePasswordHandler(svc.Session, logger))
			r.Post("/session/reset-all-data", resetAllDataHandler(svc.Session, logger))

			// =============================================
			// Bank-statement import
			// =============================================
			r.Get("/import", importPageHandler(svc.Import, logger))
			r.Put("/import/account", importAccountHandler(svc.Import, logger))
			r.Post("/import/upload", importUploadHandler(svc.Import, logger))
			r.Post("/import/selection", importSelectionHandler(svc.Import, logger))
			r.Post("/import/rows/{rowId}/tag", importTagHandler(svc.Import, logger))
			r.Delete("/import/rows/{rowId}", importDeleteRowHandler(svc.Import, logger))
			r.Delete("/import/rows", importDeleteSelectedHandler(svc.Import, logger))
			r.Delete("/import", importClearHandler(svc.Import, logger))
			r.Post("/import/categories", importCreateCategoryHandler(svc.Import, logger))
			r.Post("/import/save", importSaveHandler(svc.Import, logger))

			// =============================================
			// Accounts & categories
			// =============================================
			r.Get("/accounts", listAccountsHandler(svc.Accounts, logger))
			r.Post("/accounts", createAccountHandler(svc.Accounts, logger))
			r.Put("/accounts/{accountId}", updateAccountHandler(svc.Accounts, logger))
			r.Delete("/accounts/{accountId}", deleteAccountHandler(svc.Accounts, logger))
			r.Get("/accounts/{accountId}/transactions", accountTransactionsHandler(svc.Accounts, logger))

			r.Get("/categories", listCategoriesHandler(svc.Categories, logger))
			r.Post("/categories", createCategoryHandler(svc.Categories, logger))
			r.Put("/categories/{categoryId}", updateCategoryHandler(svc.Categories, logger))
			r.Delete("/categories/{categoryId}", deleteCategoryHandler(svc.Categories, logger))

			// =============================================
			// Transactions & manual entry
			// =============================================
			r.Get("/transactions", listTransactionsHandler(svc.Transactions, logger))
			r.Post("/transactions/entry", addEntryHandler(svc.Transactions, logger))
			r.Post("/transactions/transfer", addTransferHandler(svc.Transactions, logger))
			r.Post("/transactions/bulk-tag", bulkTagHandler(svc.Transactions, logger))
			r.Put("/transactions/{transactionId}", updateTransactionHandler(svc.Transactions, logger))
			r.Delete("/transactions/{transactionId}", deleteTransactionHandler(svc.Transactions, logger))

			// =============================================
			// Loans & portfolio
			// =============================================
			r.Get("/loans", listLoansHandler(svc.Loans, logger))
			r.Post("/loans", createLoanHandler(svc.Loans, logger))
			r.Post("/loans/repayment", loanRepaymentHandler(svc.Loans, logger))
			r.Put("/loans/{loanId}", updateLoanHandler(svc.Loans, logger))
			r.Delete("/loans/{loanId}", deleteLoanHandler(svc.Loans, logger))

			r.Get("/portfolio", portfolioPageHandler(svc.Portfolio, logger))
			r.Post("/portfolio/import-csv", portfolioImportHandler(svc.Portfolio, logger))

			// =============================================
			// Master records
			// =============================================
			if m := svc.Masters; m != nil {
				mountCollection[domain.Profile, *domain.Profile](r, m.Profiles, logger)
				mountCollection[domain.BankAccount, *domain.BankAccount](r, m.BankAccounts, logger)
				mountCollection[domain.CreditCard, *domain.CreditCard](r, m.CreditCards, logger)
				mountCollection[domain.FixedDeposit, *domain.FixedDeposit](r, m.FixedDeposits, logger)
				mountCollection[domain.GoldHolding, *domain.GoldHolding](r, m.GoldHoldings, logger)
				mountCollection[domain.GovScheme, *domain.GovScheme](r, m.GovSchemes, logger)
				mountCollection[domain.RealEstate, *domain.RealEstate](r, m.RealEstate, logger)
				mountCollection[domain.TaxDeduction, *domain.TaxDeduction](r, m.TaxDeductions, logger)
				mountCollection[domain.InvestmentHolding, *domain.InvestmentHolding](r, m.Holdings, logger)
			}

			// =============================================
			// Tax, reports & exports
			// =============================================
			r.Get("/tax", taxPageHandler(svc.Tax, logger))
			r.Post("/tax/deductions", addDeductionHandler(svc.Tax, logger))

			r.Get("/reports", reportsPageHandler(svc.Reports, logger))
			r.Get("/reports/dashboard", dashboardHandler(svc.Reports, logger))
			r.Get("/reports/balance-sheet", balanceSheetHandler(svc.Reports, logger))
			r.Get("/reports/income-expense", incomeExpenseHandler(svc.Reports, logger))

			r.Get("/exports/{kind}", exportHandler(svc.Exports, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports degraded while the upstream circuit is not closed.
func readyzHandler(upstream Upstream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "console-gateway", Status: "healthy", LastChecked: now},
		}
		overall := "healthy"
		if upstream != nil {
			state := upstream.CircuitState()
			status := "healthy"
			switch state {
			case "open":
				status = "unhealthy"
			case "half-open":
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "ledgeros-api", Status: status, CircuitState: state, LastChecked: now,
			})
			if status != "healthy" {
				overall = status
			}
		}

		code := http.StatusOK
		if overall == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}

func consoleMetricsHandler(sessionSvc *service.SessionService, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authenticated := sessionSvc != nil && sessionSvc.Authenticated()
		writeJSON(w, http.StatusOK, metrics.GetConsoleSnapshot(authenticated))
	}
}
