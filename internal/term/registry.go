package term

import (
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/BlockShell/core/internal/config"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/GriffinCanCode/BlockShell/core/internal/pty"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
	"go.uber.org/zap"
)

// Registry owns the set of live sessions and the single active session id.
// It is the sole mutator of session state: observers read through copied
// snapshots, and the history stack mutates only through the registry's own
// primitives. Operations on different sessions run concurrently; the registry
// lock guards only the session map and the active id.
type Registry struct {
	bridge pty.Bridge
	bus    *Bus
	cfg    config.TerminalConfig
	log    *logging.Logger

	mu        sync.RWMutex
	sessions  map[id.SessionID]*Session
	order     []id.SessionID // Insertion order; promotion tie-break
	active    id.SessionID
	destroyed bool
}

// NewRegistry creates a session registry on the given bridge and bus.
func NewRegistry(bridge pty.Bridge, bus *Bus, cfg config.TerminalConfig, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NewNop()
	}
	return &Registry{
		bridge:   bridge,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		sessions: make(map[id.SessionID]*Session),
	}
}

// CreateSession spawns a shell via the bridge, registers the session, and
// makes it active. Spawn failures propagate to the caller and are not
// retried.
func (r *Registry) CreateSession(name, shell, workingDir string) (id.SessionID, error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return "", ErrRegistryDestroyed
	}
	r.mu.Unlock()

	if shell == "" {
		shell = r.cfg.Shell
	}
	if workingDir == "" {
		workingDir = r.cfg.WorkingDir
	}

	s := &Session{
		ID:         id.NewSessionID(),
		Name:       name,
		Shell:      shell,
		WorkingDir: workingDir,
		CreatedAt:  time.Now(),
		alive:      true,
	}

	handle, err := r.bridge.Spawn(shell, workingDir, r.cfg.Cols, r.cfg.Rows, pty.Callbacks{
		OnData: func(data []byte) {
			r.handleOutput(s, data)
		},
		OnExit: func(code int, signal string) {
			r.handleExit(s, code, signal)
		},
	})
	if err != nil {
		return "", err
	}
	s.handle = handle

	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		handle.Kill()
		return "", ErrRegistryDestroyed
	}
	s.mu.Lock()
	if !s.alive {
		// Process died before registration; never expose the session
		s.mu.Unlock()
		r.mu.Unlock()
		handle.Kill()
		return "", &pty.SpawnError{Shell: shell, Err: errors.New("process exited during startup")}
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	r.active = s.ID
	s.mu.Unlock()
	r.mu.Unlock()

	r.bus.Publish(Event{Type: EventSessionCreated, SessionID: s.ID})

	r.log.Info("session created",
		zap.String("session_id", s.ID.String()),
		zap.String("shell", shell),
		zap.String("working_dir", workingDir))

	return s.ID, nil
}

// SwitchActive swaps the active session id. Returns false and changes
// nothing if the id is unknown. Block history is unaffected.
func (r *Registry) SwitchActive(sid id.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return false
	}
	if _, ok := r.sessions[sid]; !ok {
		return false
	}
	r.active = sid
	return true
}

// Active returns the current active session id, if any.
func (r *Registry) Active() (id.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return "", false
	}
	return r.active, true
}

// Write sends raw input to the active session.
func (r *Registry) Write(text string) error {
	sid, ok := r.Active()
	if !ok {
		return ErrNoActiveSession
	}
	return r.WriteTo(sid, text)
}

// WriteTo sends raw input to a specific session. Bytes from concurrent
// writers never interleave; serialization is per session.
func (r *Registry) WriteTo(sid id.SessionID, text string) error {
	s, ok := r.get(sid)
	if !ok {
		return ErrSessionClosed
	}

	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.handle.Write([]byte(text))
}

// SendCommand sends command text to the active session, materializing a
// running input block first. The command is always terminated with a
// carriage return on the wire.
func (r *Registry) SendCommand(text string) (Block, error) {
	sid, ok := r.Active()
	if !ok {
		return Block{}, ErrNoActiveSession
	}
	return r.SendCommandTo(sid, text)
}

// SendCommandTo sends command text to a specific session.
func (r *Registry) SendCommandTo(sid id.SessionID, text string) (Block, error) {
	s, ok := r.get(sid)
	if !ok {
		return Block{}, ErrSessionClosed
	}

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return Block{}, ErrSessionClosed
	}
	b := newBlock(s.ID, BlockInput, text, StatusRunning)
	s.blocks = append(s.blocks, b)
	snap := b.snapshot()
	s.mu.Unlock()

	r.bus.Publish(Event{Type: EventBlockCreated, SessionID: s.ID, Block: &snap})

	s.writeMu.Lock()
	err := s.handle.Write([]byte(text + "\r"))
	s.writeMu.Unlock()
	if err != nil {
		return Block{}, err
	}

	return snap, nil
}

// Resize forwards new dimensions to the targeted session's process.
// Unknown sessions are a no-op.
func (r *Registry) Resize(sid id.SessionID, cols, rows int) {
	s, ok := r.get(sid)
	if !ok {
		return
	}
	if err := s.handle.Resize(cols, rows); err != nil {
		r.log.Debug("resize failed", zap.String("session_id", sid.String()), zap.Error(err))
	}
}

// ResizeActive resizes the active session, if any.
func (r *Registry) ResizeActive(cols, rows int) {
	if sid, ok := r.Active(); ok {
		r.Resize(sid, cols, rows)
	}
}

// CloseSession kills the session's process and removes it. If it was active,
// the earliest-created remaining session is promoted; with none left, the
// active id becomes unset. Replacement policy belongs to the caller.
func (r *Registry) CloseSession(sid id.SessionID) bool {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.remove(sid)
	r.mu.Unlock()

	s.mu.Lock()
	s.alive = false
	s.buf.Reset()
	s.mu.Unlock()

	s.handle.Kill()

	r.bus.Publish(Event{Type: EventSessionClosed, SessionID: sid})
	r.log.Info("session closed", zap.String("session_id", sid.String()))
	return true
}

// remove deletes a session and repairs the active id. Caller holds r.mu.
func (r *Registry) remove(sid id.SessionID) {
	delete(r.sessions, sid)
	for i, other := range r.order {
		if other == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == sid {
		if len(r.order) > 0 {
			r.active = r.order[0]
		} else {
			r.active = ""
		}
	}
}

// ListSessions returns a read-only snapshot of all sessions.
func (r *Registry) ListSessions() []SessionInfo {
	r.mu.RLock()
	active := r.active
	ordered := make([]*Session, 0, len(r.order))
	for _, sid := range r.order {
		if s, ok := r.sessions[sid]; ok {
			ordered = append(ordered, s)
		}
	}
	r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(ordered))
	for _, s := range ordered {
		info := s.info()
		info.Active = s.ID == active
		infos = append(infos, info)
	}
	return infos
}

// SessionCount reports the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// BlocksOf returns copies of a session's block sequence.
func (r *Registry) BlocksOf(sid id.SessionID) ([]Block, bool) {
	s, ok := r.get(sid)
	if !ok {
		return nil, false
	}
	return s.Blocks(), true
}

// ActiveSession returns the active session's public info.
func (r *Registry) ActiveSession() (SessionInfo, bool) {
	sid, ok := r.Active()
	if !ok {
		return SessionInfo{}, false
	}
	s, ok := r.get(sid)
	if !ok {
		return SessionInfo{}, false
	}
	info := s.info()
	info.Active = true
	return info, true
}

// ActiveBlocks returns copies of the active session's blocks.
func (r *Registry) ActiveBlocks() []Block {
	sid, ok := r.Active()
	if !ok {
		return nil
	}
	blocks, _ := r.BlocksOf(sid)
	return blocks
}

// RemoveLastBlock removes the most recently created block from a session.
// This is the undo primitive; only the history stack should call it.
func (r *Registry) RemoveLastBlock(sid id.SessionID) (Block, bool) {
	s, ok := r.get(sid)
	if !ok {
		return Block{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) == 0 {
		return Block{}, false
	}
	last := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]
	return last.snapshot(), true
}

// AddAIBlock appends a completed AI response block to a session, streaming
// its content through a created+appended event pair so renderers can treat
// AI responses like any other block.
func (r *Registry) AddAIBlock(sid id.SessionID, prompt, content string, context map[string]string) (Block, error) {
	s, ok := r.get(sid)
	if !ok {
		return Block{}, ErrSessionClosed
	}

	s.mu.Lock()
	b := newBlock(s.ID, BlockAI, "", StatusRunning)
	b.Meta.Prompt = prompt
	b.Meta.Context = context
	s.blocks = append(s.blocks, b)
	created := b.snapshot()
	b.Content = content
	b.Status = StatusComplete
	final := b.snapshot()
	s.mu.Unlock()

	r.bus.Publish(Event{Type: EventBlockCreated, SessionID: s.ID, Block: &created})
	r.bus.Publish(Event{Type: EventBlockAppended, SessionID: s.ID, BlockID: final.ID, Chunk: content})

	return final, nil
}

// AddErrorBlock appends a completed error block, used to surface AI and
// collaborator failures without interrupting terminal usability.
func (r *Registry) AddErrorBlock(sid id.SessionID, content string) (Block, error) {
	s, ok := r.get(sid)
	if !ok {
		return Block{}, ErrSessionClosed
	}

	s.mu.Lock()
	b := newBlock(s.ID, BlockError, content, StatusError)
	s.blocks = append(s.blocks, b)
	snap := b.snapshot()
	s.mu.Unlock()

	r.bus.Publish(Event{Type: EventBlockCreated, SessionID: s.ID, Block: &snap})
	return snap, nil
}

// Destroy kills every live session and clears all state. It is a barrier:
// no further operations are accepted afterwards.
func (r *Registry) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	victims := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		victims = append(victims, s)
	}
	r.sessions = make(map[id.SessionID]*Session)
	r.order = nil
	r.active = ""
	r.mu.Unlock()

	for _, s := range victims {
		s.mu.Lock()
		s.alive = false
		s.buf.Reset()
		s.mu.Unlock()
		s.handle.Kill()
	}

	r.bus.Close()
	r.log.Info("registry destroyed", zap.Int("sessions_killed", len(victims)))
}

func (r *Registry) get(sid id.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// handleExit reacts to a session's process terminating on its own. The open
// buffer is discarded, the trailing output block is annotated with the exit
// code (and re-typed error when non-zero), and the session leaves the
// registry with the same promotion rules as CloseSession.
//
// The session is marked dead before the registry map is consulted. An exit
// that beats CreateSession's registration therefore either leaves the alive
// flag down for CreateSession to refuse on, or finds the session registered
// and removes it here; a dead session is never left in the registry.
func (r *Registry) handleExit(s *Session, code int, signal string) {
	s.mu.Lock()
	wasAlive := s.alive
	s.alive = false
	s.buf.Reset()
	if wasAlive {
		if input := s.lastRunningInput(); input != nil {
			input.Status = StatusComplete
		}
		if last := s.lastBlock(); last != nil && last.Type == BlockOutput {
			exit := code
			last.Meta.ExitCode = &exit
			if code != 0 {
				last.Type = BlockError
				last.Status = StatusError
			}
		}
	}
	s.mu.Unlock()

	r.mu.Lock()
	_, present := r.sessions[s.ID]
	if present {
		r.remove(s.ID)
	}
	destroyed := r.destroyed
	r.mu.Unlock()

	if destroyed || !wasAlive || !present {
		return
	}

	r.bus.Publish(Event{
		Type:      EventSessionExit,
		SessionID: s.ID,
		ExitCode:  code,
		Signal:    signal,
	})

	r.log.Info("session exited",
		zap.String("session_id", s.ID.String()),
		zap.Int("exit_code", code))
}
