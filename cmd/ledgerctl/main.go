// Command ledgerctl initializes and maintains the entitlement store: it
// creates the store directory and schema, backs up an existing store first,
// restricts file permissions and sets the admin credential. With --check it
// only verifies store integrity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/config"
	"github.com/dmitrijs2005/diycloud/internal/flagx"
	"github.com/dmitrijs2005/diycloud/internal/ledger"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {

	args := flagx.FilterArgs(os.Args[1:], []string{
		"-password", "--password", "-check", "--check", "-help", "--help",
	})

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	password := fs.String("password", "", "admin password (generated when omitted)")
	check := fs.Bool("check", false, "verify store integrity and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	if *check {
		return runCheck(ctx, cfg.StorePath)
	}

	secret := *password
	if secret == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		s, err := promptPassword("Admin password (empty to generate): ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		secret = s
	}

	result, err := ledger.Initialize(ctx, cfg.StorePath, secret, cfg.GeneratedPasswordLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if result.BackupPath != "" {
		fmt.Printf("existing store backed up to %s\n", result.BackupPath)
	}
	fmt.Printf("store initialized at %s\n", cfg.StorePath)

	// shown exactly once; not logged or stored anywhere in plaintext
	if result.PasswordGenerated {
		fmt.Printf("admin username: %s\n", common.AdminUsername)
		fmt.Printf("admin password: %s\n", result.AdminPassword)
	}

	return 0
}

func runCheck(ctx context.Context, path string) int {
	store, err := ledger.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Verify(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "integrity check failed: %v\n", err)
		return 1
	}

	fmt.Println("integrity check: ok")
	return 0
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
