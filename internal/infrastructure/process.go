package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/domain"
)

// waitDelay bounds how long Wait blocks on output pipes still held open by
// some descendant once the tool itself has exited
const waitDelay = 10 * time.Second

// ProcessRunner runs an external executable to completion and collects its output.
// Each call spawns exactly one process; nothing is retried.
type ProcessRunner struct {
	logger *zap.Logger
}

// NewProcessRunner creates a new process runner
func NewProcessRunner(logger *zap.Logger) *ProcessRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessRunner{logger: logger}
}

// Run executes binary with args and returns its stdout once it exits with code 0.
// A nonzero exit yields *domain.ToolError carrying stderr; a process that cannot
// be started yields *domain.LaunchError.
func (r *ProcessRunner) Run(ctx context.Context, binary string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessTree(cmd)

	r.logger.Debug("Running command", zap.String("cmd", QuoteCommand(binary, args...)))

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%s interrupted: %w", binary, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr := &domain.ToolError{
			Binary:   binary,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
		r.logger.Debug("Command failed",
			zap.String("binary", binary),
			zap.Int("exit_code", toolErr.ExitCode),
			zap.String("stderr", toolErr.Stderr))
		return "", toolErr
	}

	return "", &domain.LaunchError{Binary: binary, Err: err}
}

// QuoteCommand renders a command line for logs.
// exec.Command passes args directly, so this is never used to build a command.
func QuoteCommand(binary string, args ...string) string {
	return shellescape.QuoteCommand(append([]string{binary}, args...))
}
