package term

import (
	"sync"

	"github.com/GriffinCanCode/BlockShell/core/internal/shared/id"
)

// EventType discriminates bus events
type EventType string

const (
	// EventBlockCreated fires when the segmenter materializes a new block.
	EventBlockCreated EventType = "block.created"
	// EventBlockAppended fires when content is appended to a running block.
	EventBlockAppended EventType = "block.appended"
	// EventOutput streams raw output chunks before any flush decision, for
	// live-typing UIs. Distinct from block creation.
	EventOutput EventType = "output.chunk"
	// EventSessionCreated fires when a session is registered.
	EventSessionCreated EventType = "session.created"
	// EventSessionClosed fires when a session is closed by request.
	EventSessionClosed EventType = "session.closed"
	// EventSessionExit fires when a session's process terminates on its own.
	EventSessionExit EventType = "session.exit"
)

// Event is a single bus notification. Block is a copied value; observers can
// never reach live session state through it.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID id.SessionID `json:"session_id"`
	Block     *Block       `json:"block,omitempty"`
	BlockID   id.BlockID   `json:"block_id,omitempty"`
	Chunk     string       `json:"chunk,omitempty"`
	ExitCode  int          `json:"exit_code,omitempty"`
	Signal    string       `json:"signal,omitempty"`
}

// Subscription receives bus events until cancelled.
type Subscription struct {
	C      <-chan Event
	id     int
	cancel func()
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Bus fans session events out to subscribers. Publishing never blocks: a
// subscriber that falls behind its buffer drops events rather than stalling
// session output processing.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

const defaultBusBuffer = 256

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: defaultBusBuffer,
	}
}

// Subscribe registers a new observer.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	subID := b.nextID
	ch := make(chan Event, b.buffer)
	b.subs[subID] = ch

	return &Subscription{
		C:  ch,
		id: subID,
		cancel: func() {
			b.unsubscribe(subID)
		},
	}
}

func (b *Bus) unsubscribe(subID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[subID]; ok {
		delete(b.subs, subID)
		close(ch)
	}
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber; drop rather than stall sessions
		}
	}
}

// Close detaches all subscribers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subs {
		delete(b.subs, subID)
		close(ch)
	}
}
