// Command provision creates one tenant: an OS account, a ledger entry with
// resource entitlements, and enforcement through the limiter script.
//
// Exit codes: 0 success, 1 failure, 2 usage error, 3 entitlements recorded
// but not enforced.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/config"
	"github.com/dmitrijs2005/diycloud/internal/flagx"
	"github.com/dmitrijs2005/diycloud/internal/ledger"
	"github.com/dmitrijs2005/diycloud/internal/limiter"
	"github.com/dmitrijs2005/diycloud/internal/logging"
	"github.com/dmitrijs2005/diycloud/internal/provision"
	"github.com/dmitrijs2005/diycloud/internal/sysuser"
	"golang.org/x/term"
)

const (
	exitOK               = 0
	exitFailure          = 1
	exitUsage            = 2
	exitPartiallyApplied = 3
)

func main() {
	os.Exit(run())
}

func run() int {

	ownFlags := []string{
		"-username", "--username", "-password", "--password", "-email", "--email",
		"-cpu", "--cpu", "-memory", "--memory", "-disk", "--disk",
		"-role", "--role", "-gpu", "--gpu", "-reconcile", "--reconcile", "-help", "--help",
	}
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	username := fs.String("username", "", "tenant username (required)")
	password := fs.String("password", "", "tenant password (generated when omitted)")
	email := fs.String("email", "", "contact email")
	cpu := fs.Float64("cpu", 0, "cpu limit in cores")
	memory := fs.Int("memory", 0, "memory limit in MB")
	disk := fs.Int("disk", 0, "disk quota in MB")
	role := fs.String("role", "", "account role (user or admin)")
	gpu := fs.Bool("gpu", false, "grant gpu access")
	reconcile := fs.Bool("reconcile", false, "audit OS accounts against the ledger and exit")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *reconcile {
		return runReconcile()
	}

	if *username == "" {
		fmt.Fprintln(os.Stderr, "error: --username is required")
		fs.Usage()
		return exitUsage
	}

	cfg := config.LoadConfig()

	secret := *password
	if secret == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		s, err := promptPassword("Password (empty to generate): ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitFailure
		}
		secret = s
	}

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	store, err := ledger.Open(cfg.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	if err := store.Verify(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}

	svc := provision.NewService(
		store.DB(),
		sysuser.NewExecManager(cfg.HomeRoot),
		limiter.NewScriptLimiter(cfg.LimiterScript, cfg.LimiterTimeout),
		cfg,
		logger,
	)

	report, err := svc.Provision(ctx, provision.Request{
		Username: *username,
		Password: secret,
		Email:    *email,
		CPU:      *cpu,
		MemoryMB: *memory,
		DiskMB:   *disk,
		Role:     *role,
		GPU:      *gpu,
	})
	if err != nil {
		if errors.Is(err, common.ErrPartiallyApplied) {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			printCredentials(os.Stdout, report)
			return exitPartiallyApplied
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}

	fmt.Printf("user %s provisioned (id %d)\n", report.Username, report.UserID)
	printCredentials(os.Stdout, report)
	return exitOK
}

func runReconcile() int {
	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	store, err := ledger.Open(cfg.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	svc := provision.NewService(
		store.DB(),
		sysuser.NewExecManager(cfg.HomeRoot),
		limiter.NewScriptLimiter(cfg.LimiterScript, cfg.LimiterTimeout),
		cfg,
		logger,
	)

	report, err := svc.Reconcile(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}

	if len(report.OSOnly) == 0 && len(report.LedgerOnly) == 0 {
		fmt.Println("no drift: OS accounts and ledger entries match")
		return exitOK
	}
	for _, name := range report.OSOnly {
		fmt.Printf("os account without ledger entry: %s\n", name)
	}
	for _, name := range report.LedgerOnly {
		fmt.Printf("ledger entry without os account: %s\n", name)
	}
	return exitFailure
}

// printCredentials shows the resolved password exactly once, whether the
// operator supplied it or it was generated. It is never written anywhere else.
func printCredentials(w io.Writer, report *provision.Report) {
	if report.PasswordGenerated {
		fmt.Fprintf(w, "generated password: %s\n", report.Password)
		return
	}
	fmt.Fprintf(w, "password: %s\n", report.Password)
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
