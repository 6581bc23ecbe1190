package pty

import "fmt"

// Callbacks receive asynchronous process events. OnData is invoked from the
// reader goroutine in arrival order for the handle; OnExit fires once after
// the process terminates, after the final OnData.
type Callbacks struct {
	OnData func(data []byte)
	OnExit func(code int, signal string)
}

// Handle controls a spawned shell process.
type Handle interface {
	// Write sends input bytes to the process. Concurrent calls are
	// serialized; bytes from one call never interleave with another.
	Write(data []byte) error

	// Resize changes the terminal dimensions.
	Resize(cols, rows int) error

	// Kill terminates the process and releases the PTY. Idempotent.
	Kill() error
}

// Bridge spawns shell processes attached to pseudo-terminals.
type Bridge interface {
	Spawn(shell, workingDir string, cols, rows int, cb Callbacks) (Handle, error)
}

// SpawnError indicates the bridge could not start a shell process.
// It is fatal to the triggering createSession call and never retried.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn shell %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
