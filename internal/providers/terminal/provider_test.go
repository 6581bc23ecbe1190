package terminal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BlockShell/core/internal/assist"
	"github.com/GriffinCanCode/BlockShell/core/internal/config"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/GriffinCanCode/BlockShell/core/internal/pty"
	"github.com/GriffinCanCode/BlockShell/core/internal/term"
)

type stubHandle struct {
	mu     sync.Mutex
	writes []string
}

func (h *stubHandle) Write(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, string(data))
	return nil
}

func (h *stubHandle) Resize(cols, rows int) error { return nil }
func (h *stubHandle) Kill() error                 { return nil }

type stubBridge struct {
	mu      sync.Mutex
	handles []*stubHandle
}

func (b *stubBridge) Spawn(shell, workingDir string, cols, rows int, cb pty.Callbacks) (pty.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := &stubHandle{}
	b.handles = append(b.handles, h)
	return h, nil
}

type stubCollaborator struct {
	mu       sync.Mutex
	askText  string
	askErr   error
	journals []string
}

func (s *stubCollaborator) Ask(ctx context.Context, prompt string) (string, error) {
	return s.askText, s.askErr
}

func (s *stubCollaborator) LogAction(ctx context.Context, kind, summary string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journals = append(s.journals, kind)
	return nil
}

func (s *stubCollaborator) ContextPack(ctx context.Context) (map[string]string, error) {
	return map[string]string{"cwd": "/repo", "shell": "/bin/zsh"}, nil
}

func (s *stubCollaborator) RunScript(ctx context.Context, cmd string, args []string) (assist.ScriptResult, error) {
	return assist.ScriptResult{}, errors.New("no scripts in tests")
}

func (s *stubCollaborator) journaled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.journals))
	copy(out, s.journals)
	return out
}

func newTestProvider(t *testing.T, collab assist.Collaborator) (*Provider, *term.Registry) {
	t.Helper()
	cfg := config.Default()
	reg := term.NewRegistry(&stubBridge{}, term.NewBus(), cfg.Terminal, logging.NewNop())
	history := term.NewHistory(reg, cfg.History.Capacity)
	cache := term.NewCache(reg, collab, cfg.Context, nil)
	return NewProvider(reg, history, cache, collab, logging.NewNop()), reg
}

func TestDefinition(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	def := p.Definition()
	assert.Equal(t, "terminal", def.ID)
	assert.NotEmpty(t, def.Tools)

	seen := make(map[string]bool)
	for _, tool := range def.Tools {
		seen[tool.ID] = true
	}
	for _, want := range []string{
		"terminal.create_session", "terminal.switch", "terminal.send_command",
		"terminal.write", "terminal.resize", "terminal.close",
		"terminal.list_sessions", "terminal.blocks",
		"terminal.undo", "terminal.redo", "terminal.context", "terminal.ask",
	} {
		assert.True(t, seen[want], "missing tool %s", want)
	}
}

func TestExecuteCreateSession(t *testing.T) {
	p, reg := newTestProvider(t, nil)

	res, err := p.Execute(context.Background(), "terminal.create_session",
		map[string]interface{}{"name": "work"}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)

	sid := res.Data["session_id"].(string)
	assert.NotEmpty(t, sid)
	assert.Equal(t, 1, reg.SessionCount())
}

func TestExecuteUnknownTool(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	_, err := p.Execute(context.Background(), "terminal.nope", nil, nil)
	assert.Error(t, err)
}

func TestExecuteSwitchUnknownSession(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	res, err := p.Execute(context.Background(), "terminal.switch",
		map[string]interface{}{"session_id": "sess_unknown"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Data["switched"].(bool))
}

func TestExecuteSendCommandRequiresText(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	_, err := p.Execute(context.Background(), "terminal.send_command",
		map[string]interface{}{}, nil)
	assert.Error(t, err)
}

func TestSendCommandRecordsHistory(t *testing.T) {
	p, reg := newTestProvider(t, nil)
	reg.CreateSession("work", "", "")

	block, err := p.SendCommand(context.Background(), nil, "ls")
	require.NoError(t, err)
	assert.Equal(t, term.BlockInput, block.Type)

	res, err := p.Execute(context.Background(), "terminal.undo", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Data["undone"].(bool))

	blocks, _ := reg.BlocksOf(block.SessionID)
	assert.Empty(t, blocks, "undo removes the recorded command block")
}

func TestSendCommandToSpecificSession(t *testing.T) {
	p, reg := newTestProvider(t, nil)
	first, _ := reg.CreateSession("one", "", "")
	reg.CreateSession("two", "", "")

	target := first
	block, err := p.SendCommand(context.Background(), &target, "pwd")
	require.NoError(t, err)
	assert.Equal(t, first, block.SessionID)
}

func TestAskWithoutActiveSession(t *testing.T) {
	p, _ := newTestProvider(t, &stubCollaborator{askText: "hi"})

	_, err := p.Ask(context.Background(), "anything there?")
	assert.ErrorIs(t, err, term.ErrNoActiveSession)
}

func TestAskCreatesAIBlock(t *testing.T) {
	collab := &stubCollaborator{askText: "run make clean first"}
	p, reg := newTestProvider(t, collab)
	sid, _ := reg.CreateSession("work", "", "")

	block, err := p.Ask(context.Background(), "why did the build fail?")
	require.NoError(t, err)

	assert.Equal(t, term.BlockAI, block.Type)
	assert.Equal(t, "run make clean first", block.Content)
	assert.Equal(t, "why did the build fail?", block.Meta.Prompt)
	assert.Equal(t, "/repo", block.Meta.Context["cwd"])
	assert.Equal(t, sid, block.SessionID)

	require.Eventually(t, func() bool {
		for _, kind := range collab.journaled() {
			if kind == "ai_block" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "ask is journaled asynchronously")
}

func TestAskFailureRendersErrorBlock(t *testing.T) {
	collab := &stubCollaborator{askErr: &assist.AIError{Op: "ask", Err: errors.New("model offline")}}
	p, reg := newTestProvider(t, collab)
	sid, _ := reg.CreateSession("work", "", "")

	block, err := p.Ask(context.Background(), "hello?")
	require.NoError(t, err, "AI failure degrades to an error block, not an error")
	assert.Equal(t, term.BlockError, block.Type)

	blocks, _ := reg.BlocksOf(sid)
	require.Len(t, blocks, 1)
	assert.Equal(t, term.BlockError, blocks[0].Type)
}

func TestAskWithoutCollaborator(t *testing.T) {
	p, reg := newTestProvider(t, nil)
	reg.CreateSession("work", "", "")

	block, err := p.Ask(context.Background(), "anyone home?")
	require.NoError(t, err)
	assert.Equal(t, term.BlockError, block.Type)
}

func TestExecuteRedoWithoutUndo(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	res, err := p.Execute(context.Background(), "terminal.redo", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Data["redone"].(bool))
}

func TestExecuteBlocksUnknownSession(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	res, err := p.Execute(context.Background(), "terminal.blocks",
		map[string]interface{}{"session_id": "sess_unknown"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Data["found"].(bool))
}

func TestExecuteContext(t *testing.T) {
	p, reg := newTestProvider(t, &stubCollaborator{})
	reg.CreateSession("work", "", "")

	res, err := p.Execute(context.Background(), "terminal.context", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/repo", res.Data["cwd"])
	assert.Equal(t, "/bin/zsh", res.Data["shell"])
	assert.Equal(t, 1, res.Data["sessions"])
}
