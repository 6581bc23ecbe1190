package term

import (
	"time"

	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
)

// BlockType discriminates block origins
type BlockType string

const (
	BlockInput  BlockType = "input"
	BlockOutput BlockType = "output"
	BlockError  BlockType = "error"
	BlockAI     BlockType = "ai"
)

// BlockStatus tracks block lifecycle
type BlockStatus string

const (
	StatusRunning  BlockStatus = "running"
	StatusComplete BlockStatus = "complete"
	StatusError    BlockStatus = "error"
)

// BlockMeta carries optional structured metadata
type BlockMeta struct {
	ExitCode *int              `json:"exit_code,omitempty"`
	Prompt   string            `json:"prompt,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// Block is a discrete, typed unit of terminal activity. Identity and type are
// fixed at creation; content may grow while the status is running. Within a
// session, blocks are totally ordered by creation time.
type Block struct {
	ID        id.BlockID   `json:"id"`
	SessionID id.SessionID `json:"session_id"`
	Type      BlockType    `json:"type"`
	Content   string       `json:"content"`
	Status    BlockStatus  `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	Meta      BlockMeta    `json:"meta,omitempty"`
}

// newBlock allocates a block owned by the given session.
func newBlock(sessionID id.SessionID, typ BlockType, content string, status BlockStatus) *Block {
	return &Block{
		ID:        id.NewBlockID(),
		SessionID: sessionID,
		Type:      typ,
		Content:   content,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// snapshot returns a copied value safe to hand to observers.
func (b *Block) snapshot() Block {
	cp := *b
	if b.Meta.ExitCode != nil {
		code := *b.Meta.ExitCode
		cp.Meta.ExitCode = &code
	}
	if b.Meta.Context != nil {
		ctx := make(map[string]string, len(b.Meta.Context))
		for k, v := range b.Meta.Context {
			ctx[k] = v
		}
		cp.Meta.Context = ctx
	}
	return cp
}
