package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ledgeros/console-bfa-go/internal/config"
)

const usage = `Usage: ledgerctl [-api URL] [-token-file PATH] [-v] <command> [flags]

Commands:
  status                      show whether setup or login is needed
  setup   [-password P]       set the first password and log in
  login   [-password P]       log in
  logout                      end the session
  passwd                      change the password
  accounts [-type T]          list accounts grouped by type
  import  -account ID [-category ID] [-save] FILE
                              parse a bank statement, optionally tag and save it
  export  [-fy 2024-25] [-start D] [-end D] [-o PATH] KIND
                              download transactions, balance-sheet or ca-report
`

func main() {
	_ = config.LoadDotEnv(".env")

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	apiURL := fs.String("api", cfg.LedgerAPIURL, "LedgerOS backend origin")
	tokenFile := fs.String("token-file", cfg.TokenFile, "Where the session token is kept")
	verbose := fs.Bool("v", false, "Log requests to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, options{
		apiURL:    strings.TrimRight(*apiURL, "/"),
		tokenFile: *tokenFile,
		timeout:   cfg.HTTPTimeout,
		verbose:   *verbose,
	}, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "status":
		return a.status(ctx)
	case "setup":
		return a.setup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "passwd":
		return a.passwd(ctx)
	case "accounts":
		return a.accounts(ctx, rest)
	case "import":
		return a.importStatement(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
