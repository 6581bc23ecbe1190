package assist

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
)

// scriptTimeout bounds a single script run so context assembly can never
// hang on a wedged process.
const scriptTimeout = 5 * time.Second

// ScriptRunner executes local commands and captures stdout and exit code.
type ScriptRunner struct {
	log *logging.Logger
}

// NewScriptRunner creates a runner.
func NewScriptRunner(log *logging.Logger) *ScriptRunner {
	if log == nil {
		log = logging.NewNop()
	}
	return &ScriptRunner{log: log}
}

// Run executes cmd with args. A non-zero exit is not an error at this layer;
// the exit code is reported in the result and the error is reserved for
// failures to run at all.
func (r *ScriptRunner) Run(ctx context.Context, cmd string, args []string) (ScriptResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	command := exec.CommandContext(runCtx, cmd, args...)
	out, err := command.Output()

	result := ScriptResult{
		Stdout: strings.TrimRight(string(out), "\n"),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.Code = exitErr.ExitCode()
			return result, nil
		}
		result.Code = -1
		return result, err
	}

	return result, nil
}
