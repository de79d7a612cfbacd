package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/ledgerapi"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/resilience"
	"github.com/ledgeros/console-bfa-go/internal/infra/snapshot"
	"github.com/ledgeros/console-bfa-go/internal/infra/tokenstore"
	"github.com/ledgeros/console-bfa-go/internal/service"
	"github.com/ledgeros/console-bfa-go/internal/session"
	"github.com/ledgeros/console-bfa-go/internal/staging"

	"go.uber.org/zap"
	"golang.org/x/term"
)

type options struct {
	apiURL    string
	tokenFile string
	timeout   time.Duration
	verbose   bool
}

// app wires the same services the gateway uses, against a token file, for
// one command.
type app struct {
	stdout io.Writer
	stderr io.Writer
	input  *prompter

	sessionSvc *service.SessionService
	accountSvc *service.AccountService
	importSvc  *service.ImportService
	exportSvc  *service.ExportService
	closers    []func()
}

func newApp(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger := zap.NewNop()
	if opts.verbose {
		logger = observability.NewLogger("debug")
	}
	metrics := observability.NewMetrics()

	sess := session.New(tokenstore.NewFile(opts.tokenFile), logger)
	if err := sess.Init(ctx); err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	cb := resilience.NewCircuitBreaker("ledgeros-api", resilience.Config{}, logger)
	api := ledgerapi.NewClient(&http.Client{Timeout: opts.timeout}, opts.apiURL, sess, cb, resilience.NewBulkhead(4), metrics, logger)

	accountSnaps := snapshot.New[[]domain.Account](time.Minute, nil)
	categorySnaps := snapshot.New[[]domain.Category](time.Minute, nil)
	accounts := service.NewCollection[domain.Account]("accounts", "account", ledgerapi.NewResource[domain.Account](api, "/accounts"), accountSnaps, metrics, logger)
	categories := service.NewCollection[domain.Category]("categories", "category", api.Categories(), categorySnaps, metrics, logger)
	categorySvc := service.NewCategoryService(categories, api.Categories(), api.Reports(), logger)

	return &app{
		stdout:     stdout,
		stderr:     stderr,
		input:      &prompter{in: stdin, out: stdout},
		sessionSvc: service.NewSessionService(api.Auth(), sess, "ledgerctl", time.Hour, logger),
		accountSvc: service.NewAccountService(accounts, api.Transactions(), 0, logger),
		importSvc:  service.NewImportService(staging.New(), api.Uploads(), accounts, categorySvc, metrics, logger),
		exportSvc:  service.NewExportService(api.Exports(), logger),
		closers:    []func(){accountSnaps.Close, categorySnaps.Close, func() { _ = logger.Sync() }},
	}, nil
}

func (a *app) close() {
	for _, fn := range a.closers {
		fn()
	}
}

// ============================================================
// Session
// ============================================================

func (a *app) status(ctx context.Context) error {
	st := a.sessionSvc.Status(ctx)
	switch st.State {
	case domain.StateSetupRequired:
		fmt.Fprintln(a.stdout, "Setup required: run `ledgerctl setup`")
	case domain.StateLoginRequired:
		fmt.Fprintln(a.stdout, "Not logged in: run `ledgerctl login`")
	default:
		fmt.Fprintln(a.stdout, "Logged in")
	}
	return nil
}

func (a *app) setup(ctx context.Context, args []string) error {
	fs := newFlagSet("setup", a.stderr)
	password := fs.String("password", "", "Password (will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := domain.SetupForm{Password: *password, ConfirmPassword: *password}
	if *password == "" {
		var err error
		if form.Password, err = a.input.secret("Password: "); err != nil {
			return err
		}
		if form.ConfirmPassword, err = a.input.secret("Confirm password: "); err != nil {
			return err
		}
	}
	if _, err := a.sessionSvc.Setup(ctx, form); err != nil {
		return userError(err)
	}
	fmt.Fprintln(a.stdout, "Setup complete. Logged in.")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.stderr)
	password := fs.String("password", "", "Password (will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := domain.LoginForm{Password: *password}
	if form.Password == "" {
		var err error
		if form.Password, err = a.input.secret("Password: "); err != nil {
			return err
		}
	}
	if _, err := a.sessionSvc.Login(ctx, form); err != nil {
		return userError(err)
	}
	fmt.Fprintln(a.stdout, "Logged in")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.sessionSvc.Logout(ctx)
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) passwd(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	var (
		form domain.ChangePasswordForm
		err  error
	)
	if form.CurrentPassword, err = a.input.secret("Current password: "); err != nil {
		return err
	}
	if form.NewPassword, err = a.input.secret("New password: "); err != nil {
		return err
	}
	if form.ConfirmPassword, err = a.input.secret("Confirm new password: "); err != nil {
		return err
	}
	if err := a.sessionSvc.ChangePassword(ctx, form); err != nil {
		return userError(err)
	}
	fmt.Fprintln(a.stdout, "Password changed successfully")
	return nil
}

func (a *app) requireSession() error {
	if !a.sessionSvc.Authenticated() {
		return errors.New("not logged in: run `ledgerctl login`")
	}
	return nil
}

// ============================================================
// Accounts
// ============================================================

func (a *app) accounts(ctx context.Context, args []string) error {
	fs := newFlagSet("accounts", a.stderr)
	typ := fs.String("type", "all", "Only accounts of this type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	page, err := a.accountSvc.Page(ctx, *typ)
	if err != nil {
		return userError(err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE\t")
	for _, g := range page.Groups {
		for _, acc := range g.Accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t\n", acc.ID, acc.Name, acc.AccountType, acc.CurrentBalance)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "\nAssets %.2f  Liabilities %.2f\n", page.Totals.Assets, page.Totals.Liabilities)
	return nil
}

// ============================================================
// Import
// ============================================================

func (a *app) importStatement(ctx context.Context, args []string) error {
	fs := newFlagSet("import", a.stderr)
	accountID := fs.String("account", "", "Bank account to import into (default: first bank account)")
	categoryID := fs.String("category", "", "Tag every row with this expense category")
	save := fs.Bool("save", false, "Save the rows; without it nothing is persisted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("import needs exactly one statement file")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	if _, err := a.importSvc.Page(ctx); err != nil {
		return userError(err)
	}
	if *accountID != "" {
		if _, err := a.importSvc.SelectAccount(*accountID); err != nil {
			return userError(err)
		}
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	view, err := a.importSvc.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return userError(err)
	}
	if len(view.Rows) == 0 {
		fmt.Fprintln(a.stdout, "No transactions found in the statement")
		return nil
	}

	if *categoryID != "" {
		if _, err := a.importSvc.Select(service.SelectAll, ""); err != nil {
			return userError(err)
		}
		n, tagged, err := a.importSvc.Tag(ctx, view.Rows[0].ID, domain.TagRequest{CategoryID: *categoryID})
		if err != nil {
			return userError(err)
		}
		view = tagged
		fmt.Fprintf(a.stdout, "Tagged %d rows\n", n)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY")
	for _, row := range view.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", row.Date, row.Description, row.Amount, row.Tag.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !*save {
		fmt.Fprintf(a.stdout, "%d rows parsed into %s. Nothing saved (use -save).\n", len(view.Rows), view.AccountID)
		return nil
	}
	n, err := a.importSvc.Save(ctx)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(a.stdout, "Saved %d transactions\n", n)
	return nil
}

// ============================================================
// Export
// ============================================================

func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export", a.stderr)
	fy := fs.String("fy", "", "Financial year for ca-report, e.g. 2024-25")
	start := fs.String("start", "", "Start date yyyy-mm-dd")
	end := fs.String("end", "", "End date yyyy-mm-dd")
	out := fs.String("o", "", "Output file (default: the server's file name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("export needs a kind: transactions, balance-sheet or ca-report")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	rng, err := domain.ParseDateRange(*start, *end)
	if err != nil {
		return userError(err)
	}
	dl, err := a.exportSvc.Export(ctx, service.ExportRequest{
		Kind:          domain.ExportKind(fs.Arg(0)),
		Range:         rng,
		FinancialYear: *fy,
	})
	if err != nil {
		return userError(err)
	}
	defer dl.Body.Close()

	target := *out
	if target == "" {
		target = dl.FileName
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, dl.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	fmt.Fprintf(a.stdout, "Wrote %s (%d bytes)\n", target, n)
	return nil
}

// ============================================================
// Helpers
// ============================================================

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// userError reduces a service error to the message the console would show.
func userError(err error) error {
	var (
		expired *domain.ErrSessionExpired
		gone    *domain.ErrSessionAlreadyExpired
	)
	if errors.As(err, &expired) || errors.As(err, &gone) {
		return errors.New("session expired: run `ledgerctl login`")
	}
	var validation *domain.ErrValidation
	if errors.As(err, &validation) {
		return errors.New(validation.Message)
	}
	var op *domain.ErrOperation
	if errors.As(err, &op) {
		return errors.New(op.Message)
	}
	return err
}

// prompter reads secrets from a terminal without echo, or line by line
// from anything else.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func (p *prompter) secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	defer fmt.Fprintln(p.out)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	if p.reader == nil {
		p.reader = bufio.NewReader(p.in)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
