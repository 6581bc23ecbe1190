package assist

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/BlockShell/core/internal/config"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Client talks to the AI/journal service over HTTP JSON. Transient transport
// failures are retried by the underlying retryable client; model-level
// failures surface as AIError.
type Client struct {
	http   *resty.Client
	runner *ScriptRunner
	log    *logging.Logger
}

// NewClient creates an HTTP collaborator client.
func NewClient(cfg config.AssistConfig, log *logging.Logger) *Client {
	if log == nil {
		log = logging.NewNop()
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.Retries
	retry.Logger = nil

	http := resty.NewWithClient(retry.StandardClient()).
		SetBaseURL(cfg.Address).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:   http,
		runner: NewScriptRunner(log),
		log:    log,
	}
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Ask sends a prompt and returns the model's text response.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	var out askResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(askRequest{Prompt: prompt}).
		SetResult(&out).
		Post("/v1/ask")
	if err != nil {
		return "", &AIError{Op: "ask", Err: err}
	}
	if resp.IsError() {
		return "", &AIError{Op: "ask", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), out.Error)}
	}
	return out.Text, nil
}

type journalRequest struct {
	Kind     string                 `json:"kind"`
	Summary  string                 `json:"summary"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// LogAction journals an action. Failures are reported but callers treat the
// call as best-effort.
func (c *Client) LogAction(ctx context.Context, kind, summary string, metadata map[string]interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(journalRequest{Kind: kind, Summary: summary, Metadata: metadata}).
		Post("/v1/journal")
	if err != nil {
		return &AIError{Op: "journal", Err: err}
	}
	if resp.IsError() {
		return &AIError{Op: "journal", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return nil
}

// ContextPack fetches the collaborator's ambient context fields.
func (c *Client) ContextPack(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/context")
	if err != nil {
		return nil, &AIError{Op: "context", Err: err}
	}
	if resp.IsError() {
		return nil, &AIError{Op: "context", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return out, nil
}

// RunScript executes a local command through the script runner.
func (c *Client) RunScript(ctx context.Context, cmd string, args []string) (ScriptResult, error) {
	res, err := c.runner.Run(ctx, cmd, args)
	if err != nil {
		c.log.Debug("script failed", zap.String("cmd", cmd), zap.Error(err))
	}
	return res, err
}
