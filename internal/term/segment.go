package term

import (
	"bytes"
	"strings"
)

// Segment boundary detection is two-tier. Shells that integrate with the
// OSC 133 convention emit explicit prompt markers, which are authoritative:
// the first marker a session ever produces latches marker mode and disables
// the heuristic for that session. Everything else falls back to treating a
// prompt indicator character in the newly arrived chunk as a prompt signal.
// Shells do not otherwise delimit command boundaries, so the fallback is a
// deliberate part of the design rather than a shortcut.

// promptIndicators are the characters the heuristic accepts as prompt signals.
const promptIndicators = "$>#"

var (
	oscPrefix = []byte("\x1b]133;")
	oscBel    = []byte("\x07")
	oscSt     = []byte("\x1b\\")
)

// oscMarker is one complete OSC 133 sequence located in a buffer.
type oscMarker struct {
	start int  // Offset of ESC
	end   int  // Offset one past the terminator
	cmd   byte // Subcommand: 'A' prompt start, 'B' prompt end, 'C' pre-exec, 'D' finished
}

// findMarker locates the first complete OSC 133 sequence at or after from.
// Incomplete trailing sequences are left alone; they complete when the next
// chunk arrives.
func findMarker(buf []byte, from int) (oscMarker, bool) {
	i := bytes.Index(buf[from:], oscPrefix)
	if i < 0 {
		return oscMarker{}, false
	}
	start := from + i
	body := start + len(oscPrefix)
	if body >= len(buf) {
		return oscMarker{}, false
	}

	term := bytes.Index(buf[body:], oscBel)
	termLen := len(oscBel)
	if st := bytes.Index(buf[body:], oscSt); st >= 0 && (term < 0 || st < term) {
		term = st
		termLen = len(oscSt)
	}
	if term < 0 {
		return oscMarker{}, false
	}

	return oscMarker{
		start: start,
		end:   body + term + termLen,
		cmd:   buf[body],
	}, true
}

// handleOutput appends an arriving chunk to the session's buffer, emits a
// streaming notification, and flushes a block when a prompt boundary is
// recognized. Chunks for one session are processed in arrival order.
func (r *Registry) handleOutput(s *Session, chunk []byte) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}

	s.buf.Write(chunk)
	if s.buf.Len() > r.cfg.BufferCap {
		// Bound runaway output between prompts; oldest bytes go first
		excess := s.buf.Len() - r.cfg.BufferCap
		s.buf.Next(excess)
	}

	events := []Event{{
		Type:      EventOutput,
		SessionID: s.ID,
		Chunk:     string(chunk),
	}}

	if flushed := r.segment(s, chunk); flushed != nil {
		events = append(events, flushed...)
	}
	s.mu.Unlock()

	for _, evt := range events {
		r.bus.Publish(evt)
	}
}

// segment applies the flush decision to the session buffer. Caller holds
// s.mu. Returned events are published after the lock is released.
//
// Every complete marker in the buffer is consumed: instrumented shells emit
// the command-finished and next prompt-start markers in a single PTY write,
// so stopping at the first marker would leave the prompt boundary buffered
// until the next interaction.
func (r *Registry) segment(s *Session, chunk []byte) []Event {
	var events []Event

	for {
		buf := s.buf.Bytes()
		marker, ok := findMarker(buf, 0)
		if !ok {
			break
		}
		s.sawMarker = true

		prefix := append([]byte{}, buf[:marker.start]...)
		rest := append([]byte{}, buf[marker.end:]...)
		s.buf.Reset()
		if marker.cmd == 'A' {
			// Prompt start: everything before the marker is command
			// output; bytes after it belong to the next block
			s.buf.Write(rest)
			events = append(events, r.flush(s, string(prefix))...)
			continue
		}
		// Other subcommands carry no boundary we act on; strip them so
		// they never leak into block content
		s.buf.Write(prefix)
		s.buf.Write(rest)
	}

	if s.sawMarker {
		return events
	}

	if bytes.ContainsAny(chunk, promptIndicators) {
		content := dropPromptLine(s.buf.String())
		s.buf.Reset()
		return r.flush(s, content)
	}

	return nil
}

// flush completes the most recent running input block and materializes the
// trimmed buffer content as a new output block. Caller holds s.mu.
func (r *Registry) flush(s *Session, content string) []Event {
	var events []Event

	if input := s.lastRunningInput(); input != nil {
		input.Status = StatusComplete
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return events
	}

	b := newBlock(s.ID, BlockOutput, trimmed, StatusComplete)
	s.blocks = append(s.blocks, b)
	snap := b.snapshot()
	events = append(events, Event{
		Type:      EventBlockCreated,
		SessionID: s.ID,
		Block:     &snap,
	})
	return events
}

// dropPromptLine removes the trailing line when it looks like a shell
// prompt, so the prompt echo never pollutes block content.
func dropPromptLine(text string) string {
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		if strings.ContainsAny(text, promptIndicators) {
			return ""
		}
		return text
	}
	if strings.ContainsAny(text[idx+1:], promptIndicators) {
		return text[:idx]
	}
	return text
}
