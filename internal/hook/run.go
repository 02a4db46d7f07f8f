package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes rendered hook commands with an in-process POSIX shell.
type Runner struct {
	logger *log.Logger
}

// NewRunner creates a hook runner. A nil logger discards output.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{logger: logger}
}

// Run parses and executes command in dir. The command's stdout/stderr are
// captured and logged; a non-zero exit status is an error carrying the
// status code.
func (r *Runner) Run(ctx context.Context, command, dir string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("empty hook command")
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "hook")
	if err != nil {
		return fmt.Errorf("parse hook command %q: %w", command, err)
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(nil, &stdout, &stderr),
		interp.Dir(dir),
	)
	if err != nil {
		return fmt.Errorf("create hook interpreter: %w", err)
	}

	r.logger.Debug("running hook", "command", command, "dir", dir)
	runErr := runner.Run(ctx, prog)

	if stdout.Len() > 0 {
		r.logger.Debug("hook stdout", "output", strings.TrimSpace(stdout.String()))
	}
	if stderr.Len() > 0 {
		r.logger.Debug("hook stderr", "output", strings.TrimSpace(stderr.String()))
	}

	if runErr != nil {
		var status interp.ExitStatus
		if errors.As(runErr, &status) {
			return fmt.Errorf("hook command %q exited with status %d", command, int(status))
		}
		return fmt.Errorf("run hook command %q: %w", command, runErr)
	}
	return nil
}
