// Package limiter invokes the external enforcement script that applies stored
// entitlements (cgroup shares, quotas, GPU device access) to a live OS
// account. The ledger instructs the limiter; it never enforces anything
// itself.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
)

// Limiter applies an entitlement quad to a live OS account.
type Limiter interface {
	ApplyEntitlements(ctx context.Context, username string, cpu float64, memMB, diskMB int, gpu bool) error
}

// runCommand is a seam for testing exec invocations.
var runCommand = func(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

// ScriptLimiter runs a shell script with positional arguments
// (username, cpu, memMB, diskMB, gpu) under a bounded timeout.
type ScriptLimiter struct {
	script  string
	timeout time.Duration
}

func NewScriptLimiter(script string, timeout time.Duration) *ScriptLimiter {
	return &ScriptLimiter{script: script, timeout: timeout}
}

func (l *ScriptLimiter) ApplyEntitlements(ctx context.Context, username string, cpu float64, memMB, diskMB int, gpu bool) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", l.script,
		username,
		strconv.FormatFloat(cpu, 'f', -1, 64),
		strconv.Itoa(memMB),
		strconv.Itoa(diskMB),
		strconv.FormatBool(gpu),
	)

	out, err := runCommand(cmd)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: limiter timed out after %s", common.ErrExternal, l.timeout)
		}
		return fmt.Errorf("%w: limiter: %v: %s", common.ErrExternal, err, strings.TrimSpace(string(out)))
	}
	return nil
}
