// Package sysuser manages OS-level tenant accounts. The provisioning workflow
// talks to it through the Manager interface so tests can substitute a fake;
// the real implementation shells out to the standard system tools.
package sysuser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/filex"
)

// Manager abstracts OS account management for the provisioning workflow.
type Manager interface {
	// AccountExists reports whether an OS account with this name exists.
	AccountExists(ctx context.Context, username string) (bool, error)

	// CreateAccount creates the OS account with a home directory and a
	// standard shell.
	CreateAccount(ctx context.Context, username string) error

	// SetAccountPassword sets the OS account password. The plaintext must
	// never be passed on a command line or logged.
	SetAccountPassword(ctx context.Context, username, plaintext string) error

	// EnsureUserDir creates a directory under the account's home, owned by
	// the account, with the given mode.
	EnsureUserDir(ctx context.Context, username, subdir string, mode os.FileMode) error

	// ListAccounts returns the regular (non-system) OS account names.
	ListAccounts(ctx context.Context) ([]string, error)

	// HomeDir returns the home directory path for username.
	HomeDir(username string) string
}

// Regular accounts live in this uid range; everything below is a system
// account and everything above is reserved (nobody etc).
const (
	minRegularUID = 1000
	maxRegularUID = 60000
)

// runCommand is a seam for testing exec invocations.
var runCommand = func(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

// lookupUser is a seam for testing user lookups.
var lookupUser = user.Lookup

// ExecManager implements Manager by shelling out to useradd, chpasswd, id and
// getent.
type ExecManager struct {
	homeRoot string
	shell    string
}

func NewExecManager(homeRoot string) *ExecManager {
	return &ExecManager{homeRoot: homeRoot, shell: "/bin/bash"}
}

func (m *ExecManager) HomeDir(username string) string {
	return filepath.Join(m.homeRoot, username)
}

func (m *ExecManager) AccountExists(ctx context.Context, username string) (bool, error) {
	cmd := exec.CommandContext(ctx, "id", "-u", username)
	_, err := runCommand(cmd)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("%w: id %s: %v", common.ErrExternal, username, err)
}

func (m *ExecManager) CreateAccount(ctx context.Context, username string) error {
	cmd := exec.CommandContext(ctx, "useradd",
		"-m", "-d", m.HomeDir(username), "-s", m.shell, username)
	if out, err := runCommand(cmd); err != nil {
		return fmt.Errorf("%w: useradd %s: %v: %s", common.ErrExternal, username, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (m *ExecManager) SetAccountPassword(ctx context.Context, username, plaintext string) error {
	// chpasswd reads "user:password" from stdin, keeping the secret off the
	// command line and out of the process list.
	cmd := exec.CommandContext(ctx, "chpasswd")
	cmd.Stdin = strings.NewReader(username + ":" + plaintext)
	if out, err := runCommand(cmd); err != nil {
		return fmt.Errorf("%w: chpasswd %s: %v: %s", common.ErrExternal, username, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (m *ExecManager) EnsureUserDir(ctx context.Context, username, subdir string, mode os.FileMode) error {
	u, err := lookupUser(username)
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %v", common.ErrExternal, username, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid for %s: %w", username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid for %s: %w", username, err)
	}

	dir := filepath.Join(m.HomeDir(username), subdir)
	if err := filex.EnsureDir(dir, mode); err != nil {
		return err
	}
	if err := os.Chown(dir, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", dir, err)
	}
	return nil
}

func (m *ExecManager) ListAccounts(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "getent", "passwd")
	out, err := runCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: getent passwd: %v", common.ErrExternal, err)
	}
	return parsePasswd(string(out)), nil
}

// parsePasswd extracts regular account names from getent passwd output.
func parsePasswd(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		if uid >= minRegularUID && uid <= maxRegularUID {
			names = append(names, fields[0])
		}
	}
	return names
}
