// Package terminal exposes the session core as a tool provider.
//
// This provider fronts the registry, history stack, and context cache with
// the standard service surface, so UI shells drive block-based terminal
// sessions through typed tools instead of raw byte streams.
//
// Tools:
//   - terminal.create_session: Create new shell session with PTY
//   - terminal.switch: Make a session the active input target
//   - terminal.send_command: Run a command, materializing an input block
//   - terminal.write: Send raw input without creating a block
//   - terminal.resize: Resize terminal dimensions
//   - terminal.close: Terminate session and promote a replacement
//   - terminal.list_sessions: List all sessions with active flag
//   - terminal.blocks: Read a session's block history
//   - terminal.undo / terminal.redo: Journal undo over block actions
//   - terminal.context: Assemble the AI context snapshot
//   - terminal.ask: Ask the AI collaborator, rendering the reply as a block
package terminal
