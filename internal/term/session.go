package term

import (
	"bytes"
	"sync"
	"time"

	"github.com/GriffinCanCode/BlockShell/core/internal/pty"
	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
)

// Session is one live shell plus its segmented block history. The registry is
// the sole mutator; all fields behind mu are touched only while holding it.
type Session struct {
	ID         id.SessionID
	Name       string
	Shell      string
	WorkingDir string
	CreatedAt  time.Time

	handle pty.Handle

	mu     sync.Mutex
	blocks []*Block
	buf    bytes.Buffer // Accumulated output not yet flushed into a block
	alive  bool

	// sawMarker latches once the shell has ever emitted an OSC 133 prompt
	// marker. From then on the prompt-character heuristic is disabled for
	// this session.
	sawMarker bool

	writeMu sync.Mutex // Serializes writes so commands never interleave
}

// SessionInfo is the read-only public representation of a session.
type SessionInfo struct {
	ID         id.SessionID `json:"id"`
	Name       string       `json:"name"`
	Shell      string       `json:"shell"`
	WorkingDir string       `json:"working_dir"`
	CreatedAt  time.Time    `json:"created_at"`
	Active     bool         `json:"active"`
	Alive      bool         `json:"alive"`
	Blocks     int          `json:"blocks"`
}

// info snapshots public session state. Caller marks Active.
func (s *Session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionInfo{
		ID:         s.ID,
		Name:       s.Name,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		CreatedAt:  s.CreatedAt,
		Alive:      s.alive,
		Blocks:     len(s.blocks),
	}
}

// Blocks returns copies of the session's block sequence in creation order.
func (s *Session) Blocks() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.snapshot()
	}
	return out
}

// lastRunningInput finds the most recent input block still running.
// Caller holds s.mu.
func (s *Session) lastRunningInput() *Block {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		b := s.blocks[i]
		if b.Type == BlockInput && b.Status == StatusRunning {
			return b
		}
	}
	return nil
}

// lastBlock returns the trailing block, or nil. Caller holds s.mu.
func (s *Session) lastBlock() *Block {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}
