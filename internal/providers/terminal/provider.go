package terminal

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/BlockShell/core/internal/assist"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/types"
	"github.com/GriffinCanCode/BlockShell/core/internal/term"
	"go.uber.org/zap"
)

// Provider implements block-terminal operations over the session core.
type Provider struct {
	registry *term.Registry
	history  *term.History
	cache    *term.Cache
	assist   assist.Collaborator // Optional; nil disables AI tools
	log      *logging.Logger
}

// NewProvider creates a terminal provider.
func NewProvider(registry *term.Registry, history *term.History, cache *term.Cache, collaborator assist.Collaborator, log *logging.Logger) *Provider {
	if log == nil {
		log = logging.NewNop()
	}
	return &Provider{
		registry: registry,
		history:  history,
		cache:    cache,
		assist:   collaborator,
		log:      log,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Block Terminal Service",
		Description: "Multiplexed shell sessions with typed output blocks, undo history, and AI context",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"sessions",
			"blocks",
			"undo",
			"ai_context",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(params)
	case "terminal.switch":
		return p.switchSession(params)
	case "terminal.send_command":
		return p.sendCommand(ctx, params)
	case "terminal.write":
		return p.write(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.close":
		return p.closeSession(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.blocks":
		return p.blocks(params)
	case "terminal.undo":
		return p.undo()
	case "terminal.redo":
		return p.redo()
	case "terminal.context":
		return p.getContext(ctx)
	case "terminal.ask":
		return p.ask(ctx, params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

// SendCommand runs a command in the targeted (or active) session and records
// it in the undo history.
func (p *Provider) SendCommand(ctx context.Context, sid *id.SessionID, text string) (term.Block, error) {
	var block term.Block
	var err error
	if sid != nil {
		block, err = p.registry.SendCommandTo(*sid, text)
	} else {
		block, err = p.registry.SendCommand(text)
	}
	if err != nil {
		return term.Block{}, err
	}

	p.history.Record(term.ActionCommand, term.Payload{
		SessionID: block.SessionID,
		Command:   text,
	})

	p.journal(ctx, "command", text, map[string]interface{}{
		"session_id": block.SessionID.String(),
		"block_id":   block.ID.String(),
	})

	return block, nil
}

// Ask sends a prompt to the AI collaborator with the assembled context
// snapshot. Failures render as an error block in the active session instead
// of propagating; terminal usability never depends on the AI.
func (p *Provider) Ask(ctx context.Context, prompt string) (term.Block, error) {
	sid, ok := p.registry.Active()
	if !ok {
		return term.Block{}, term.ErrNoActiveSession
	}

	if p.assist == nil {
		return p.registry.AddErrorBlock(sid, "AI assistant is not configured")
	}

	snap := p.cache.Get(ctx)
	contextMap := map[string]string{
		"cwd":   snap.CWD,
		"shell": snap.Shell,
	}
	if snap.GitStatus != "" {
		contextMap["git_status"] = snap.GitStatus
	}
	for i, errText := range snap.RecentErrors {
		contextMap[fmt.Sprintf("recent_error_%d", i)] = errText
	}

	text, err := p.assist.Ask(ctx, prompt)
	if err != nil {
		p.log.Warn("ai ask failed", zap.Error(err))
		return p.registry.AddErrorBlock(sid, err.Error())
	}

	block, err := p.registry.AddAIBlock(sid, prompt, text, contextMap)
	if err != nil {
		return term.Block{}, err
	}

	p.history.Record(term.ActionAI, term.Payload{
		SessionID: sid,
		Prompt:    prompt,
		Content:   text,
		Context:   contextMap,
	})

	p.journal(ctx, "ai_block", prompt, map[string]interface{}{
		"session_id": sid.String(),
		"block_id":   block.ID.String(),
	})

	return block, nil
}

// journal logs an action to the collaborator, best-effort.
func (p *Provider) journal(ctx context.Context, kind, summary string, metadata map[string]interface{}) {
	if p.assist == nil {
		return
	}
	go func() {
		if err := p.assist.LogAction(context.WithoutCancel(ctx), kind, summary, metadata); err != nil {
			p.log.Debug("journal failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (p *Provider) createSession(params map[string]interface{}) (*types.Result, error) {
	name, _ := params["name"].(string)
	shell, _ := params["shell"].(string)
	workingDir, _ := params["working_dir"].(string)

	sid, err := p.registry.CreateSession(name, shell, workingDir)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"session_id": sid.String()},
	}, nil
}

func (p *Provider) switchSession(params map[string]interface{}) (*types.Result, error) {
	sid, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}

	switched := p.registry.SwitchActive(id.SessionID(sid))

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"switched": switched},
	}, nil
}

func (p *Provider) sendCommand(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	text, ok := params["text"].(string)
	if !ok {
		return nil, fmt.Errorf("text is required")
	}

	var target *id.SessionID
	if raw, ok := params["session_id"].(string); ok && raw != "" {
		sid := id.SessionID(raw)
		target = &sid
	}

	block, err := p.SendCommand(ctx, target, text)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"block_id":   block.ID.String(),
			"session_id": block.SessionID.String(),
		},
	}, nil
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	input, ok := params["input"].(string)
	if !ok {
		return nil, fmt.Errorf("input is required")
	}

	var err error
	if raw, ok := params["session_id"].(string); ok && raw != "" {
		err = p.registry.WriteTo(id.SessionID(raw), input)
	} else {
		err = p.registry.Write(input)
	}
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	cols, ok := params["cols"].(float64)
	if !ok {
		return nil, fmt.Errorf("cols is required")
	}

	rows, ok := params["rows"].(float64)
	if !ok {
		return nil, fmt.Errorf("rows is required")
	}

	if raw, ok := params["session_id"].(string); ok && raw != "" {
		p.registry.Resize(id.SessionID(raw), int(cols), int(rows))
	} else {
		p.registry.ResizeActive(int(cols), int(rows))
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) closeSession(params map[string]interface{}) (*types.Result, error) {
	sid, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}

	closed := p.registry.CloseSession(id.SessionID(sid))

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"closed": closed},
	}, nil
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.registry.ListSessions()

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		},
	}, nil
}

func (p *Provider) blocks(params map[string]interface{}) (*types.Result, error) {
	sid, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}

	blocks, found := p.registry.BlocksOf(id.SessionID(sid))
	if !found {
		return &types.Result{
			Success: true,
			Data:    map[string]interface{}{"blocks": []term.Block{}, "found": false},
		}, nil
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"blocks": blocks,
			"found":  true,
		},
	}, nil
}

func (p *Provider) undo() (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"undone": p.history.Undo()},
	}, nil
}

func (p *Provider) redo() (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"redone": p.history.Redo()},
	}, nil
}

func (p *Provider) getContext(ctx context.Context) (*types.Result, error) {
	snap := p.cache.Get(ctx)

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"cwd":           snap.CWD,
			"shell":         snap.Shell,
			"recent_errors": snap.RecentErrors,
			"git_status":    snap.GitStatus,
			"sessions":      snap.Sessions,
			"tabs":          snap.Tabs,
			"captured_at":   snap.CapturedAt,
		},
	}, nil
}

func (p *Provider) ask(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	prompt, ok := params["prompt"].(string)
	if !ok {
		return nil, fmt.Errorf("prompt is required")
	}

	block, err := p.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"block_id": block.ID.String(),
			"type":     string(block.Type),
			"content":  block.Content,
		},
	}, nil
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Create a new interactive shell session with PTY and make it active",
			Parameters: []types.Parameter{
				{Name: "name", Type: "string", Description: "Display name for the session", Required: false},
				{Name: "shell", Type: "string", Description: "Shell to use (e.g., /bin/bash, /bin/zsh). Defaults to user's shell", Required: false},
				{Name: "working_dir", Type: "string", Description: "Initial working directory. Defaults to user's home", Required: false},
			},
			Returns: "session_id",
		},
		{
			ID:          "terminal.switch",
			Name:        "Switch Active Session",
			Description: "Make a session the active input target",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "switched",
		},
		{
			ID:          "terminal.send_command",
			Name:        "Send Command",
			Description: "Run a command in a session, creating a running input block",
			Parameters: []types.Parameter{
				{Name: "text", Type: "string", Description: "Command text", Required: true},
				{Name: "session_id", Type: "string", Description: "Target session; defaults to active", Required: false},
			},
			Returns: "block_id",
		},
		{
			ID:          "terminal.write",
			Name:        "Write Raw Input",
			Description: "Send raw bytes to a session without creating a block",
			Parameters: []types.Parameter{
				{Name: "input", Type: "string", Description: "Input to send to the shell", Required: true},
				{Name: "session_id", Type: "string", Description: "Target session; defaults to active", Required: false},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
				{Name: "session_id", Type: "string", Description: "Target session; defaults to active", Required: false},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.close",
			Name:        "Close Session",
			Description: "Terminate a session and promote another to active",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "closed",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Sessions",
			Description: "List all sessions with their active flag",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.blocks",
			Name:        "Read Blocks",
			Description: "Read a session's block history in creation order",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "blocks",
		},
		{
			ID:          "terminal.undo",
			Name:        "Undo",
			Description: "Remove the most recent block-producing action from visible history",
			Parameters:  []types.Parameter{},
			Returns:     "undone",
		},
		{
			ID:          "terminal.redo",
			Name:        "Redo",
			Description: "Re-execute the most recently undone action",
			Parameters:  []types.Parameter{},
			Returns:     "redone",
		},
		{
			ID:          "terminal.context",
			Name:        "Get AI Context",
			Description: "Assemble the ambient context snapshot used by AI-assisted commands",
			Parameters:  []types.Parameter{},
			Returns:     "context_snapshot",
		},
		{
			ID:          "terminal.ask",
			Name:        "Ask AI",
			Description: "Send a prompt to the AI with terminal context; reply appears as a block",
			Parameters: []types.Parameter{
				{Name: "prompt", Type: "string", Description: "Prompt text", Required: true},
			},
			Returns: "block",
		},
	}
}
