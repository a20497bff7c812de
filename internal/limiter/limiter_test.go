package limiter

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRunCommand(t *testing.T, fn func(cmd *exec.Cmd) ([]byte, error)) {
	t.Helper()
	orig := runCommand
	runCommand = fn
	t.Cleanup(func() { runCommand = orig })
}

func TestApplyEntitlements_Args(t *testing.T) {
	l := NewScriptLimiter("/opt/diycloud/resources/apply_limits.sh", time.Second)

	var gotArgs []string
	stubRunCommand(t, func(cmd *exec.Cmd) ([]byte, error) {
		gotArgs = cmd.Args
		return nil, nil
	})

	err := l.ApplyEntitlements(context.Background(), "alice", 2.0, 4096, 10240, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bash", "/opt/diycloud/resources/apply_limits.sh",
		"alice", "2", "4096", "10240", "true",
	}, gotArgs)
}

func TestApplyEntitlements_ScriptFailure(t *testing.T) {
	l := NewScriptLimiter("/opt/diycloud/resources/apply_limits.sh", time.Second)

	stubRunCommand(t, func(cmd *exec.Cmd) ([]byte, error) {
		return []byte("quota: device busy"), errors.New("exit status 1")
	})

	err := l.ApplyEntitlements(context.Background(), "alice", 1.0, 2048, 5120, false)
	require.ErrorIs(t, err, common.ErrExternal)
	assert.Contains(t, err.Error(), "device busy")
}

func TestApplyEntitlements_Timeout(t *testing.T) {
	l := NewScriptLimiter("/opt/diycloud/resources/apply_limits.sh", time.Nanosecond)

	stubRunCommand(t, func(cmd *exec.Cmd) ([]byte, error) {
		time.Sleep(10 * time.Millisecond)
		return nil, errors.New("signal: killed")
	})

	err := l.ApplyEntitlements(context.Background(), "alice", 1.0, 2048, 5120, false)
	require.ErrorIs(t, err, common.ErrExternal)
	assert.Contains(t, err.Error(), "timed out")
}
