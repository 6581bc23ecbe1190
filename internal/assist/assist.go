// Package assist defines the AI/journal collaborator contract and its HTTP
// implementation. The core treats every call here as potentially slow and
// never lets a failure block basic terminal usability.
package assist

import (
	"context"
	"fmt"
)

// ScriptResult is the outcome of running a local script.
type ScriptResult struct {
	Stdout string `json:"stdout"`
	Code   int    `json:"code"`
}

// Collaborator is the capability surface consumed by the core. Dependents
// hold it as a nullable injected dependency and check presence explicitly;
// a nil collaborator degrades AI features without touching the terminal.
type Collaborator interface {
	// Ask sends a prompt to the AI model and returns its response text.
	Ask(ctx context.Context, prompt string) (string, error)

	// LogAction journals an action for the AI's long-term memory.
	LogAction(ctx context.Context, kind, summary string, metadata map[string]interface{}) error

	// ContextPack fetches ambient context fields maintained by the
	// collaborator (cwd, shell, user preferences).
	ContextPack(ctx context.Context) (map[string]string, error)

	// RunScript executes a local command and captures stdout and exit code.
	RunScript(ctx context.Context, cmd string, args []string) (ScriptResult, error)
}

// AIError indicates an AI call failed. Callers catch it locally and render
// an error block; it never propagates past the triggering operation.
type AIError struct {
	Op  string
	Err error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai %s failed: %v", e.Op, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }
