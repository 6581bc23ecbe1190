// Package pty bridges shell processes into the core as duplex byte streams.
//
// The Bridge interface is the only surface the core consumes: spawn a shell
// attached to a pseudo-terminal, write bytes, resize, kill, and receive
// asynchronous data/exit callbacks. The production implementation sits on
// github.com/creack/pty; tests substitute an in-memory fake.
//
// Architecture:
//   - Spawn starts the shell with pty.StartWithSize
//   - A reader goroutine forwards PTY output to OnData in arrival order
//   - A monitor goroutine waits on the process and fires OnExit exactly once
//   - Writes are serialized per handle so concurrent callers never interleave
package pty
