package term

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
)

// ActionType classifies recorded actions
type ActionType string

const (
	ActionCommand ActionType = "command"
	ActionAI      ActionType = "ai_block"
)

// Payload carries enough to redo an action. It holds copies only, never live
// block references, so undone state can never be mutated through it.
type Payload struct {
	SessionID id.SessionID      `json:"session_id"`
	Command   string            `json:"command,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Content   string            `json:"content,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// Entry is one recorded block-producing action.
type Entry struct {
	ID      id.EntryID `json:"id"`
	Type    ActionType `json:"type"`
	Payload Payload    `json:"payload"`
	At      time.Time  `json:"at"`
}

// DefaultHistoryCapacity bounds the undo stack.
const DefaultHistoryCapacity = 50

// History is a bounded undo/redo stack of block-producing actions.
//
// Undo here is journal undo, not process-state rollback: undoing a command
// removes its blocks from the visible session history, but whatever the
// command did to the shell or the filesystem has already happened and is not
// reversed. Redo re-executes the recorded action, so a redone command runs
// again in the shell.
type History struct {
	registry *Registry
	capacity int

	mu   sync.Mutex
	undo []Entry
	redo []Entry
}

// NewHistory creates a history stack over the given registry.
func NewHistory(registry *Registry, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		registry: registry,
		capacity: capacity,
	}
}

// Record pushes a new entry. The oldest entry is evicted past capacity, and
// any redo state is discarded: history never forks.
func (h *History) Record(typ ActionType, payload Payload) Entry {
	entry := Entry{
		ID:      id.NewEntryID(),
		Type:    typ,
		Payload: payload,
		At:      time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.undo = append(h.undo, entry)
	if len(h.undo) > h.capacity {
		h.undo = h.undo[len(h.undo)-h.capacity:]
	}
	h.redo = h.redo[:0]

	return entry
}

// Undo pops the most recent entry onto the redo stack and removes the last
// block from the owning session, keeping visible history in step with the
// stack. Returns false when the stack is empty.
func (h *History) Undo() bool {
	h.mu.Lock()
	if len(h.undo) == 0 {
		h.mu.Unlock()
		return false
	}
	entry := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, entry)
	h.mu.Unlock()

	switch entry.Type {
	case ActionCommand, ActionAI:
		h.registry.RemoveLastBlock(entry.Payload.SessionID)
	}

	return true
}

// Redo pops from the redo stack and re-executes the recorded action: commands
// are re-sent to the shell, AI blocks are re-added with their original
// content. The resulting block is equivalent in type and content but carries
// a fresh id and timestamp. Returns false when the redo stack is empty or
// the owning session no longer exists.
func (h *History) Redo() bool {
	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return false
	}
	entry := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.mu.Unlock()

	var err error
	switch entry.Type {
	case ActionCommand:
		_, err = h.registry.SendCommandTo(entry.Payload.SessionID, entry.Payload.Command)
	case ActionAI:
		_, err = h.registry.AddAIBlock(
			entry.Payload.SessionID,
			entry.Payload.Prompt,
			entry.Payload.Content,
			entry.Payload.Context,
		)
	}
	if err != nil {
		return false
	}

	h.mu.Lock()
	h.undo = append(h.undo, entry)
	if len(h.undo) > h.capacity {
		h.undo = h.undo[len(h.undo)-h.capacity:]
	}
	h.mu.Unlock()

	return true
}

// Len reports the undo stack depth.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// RedoLen reports the redo stack depth.
func (h *History) RedoLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

// Entries returns a copy of the undo stack, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.undo))
	copy(out, h.undo)
	return out
}
