package term

import "errors"

var (
	// ErrNoActiveSession is returned when a write or command targets the
	// active session and none exists.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionClosed is returned when writing to a session whose process
	// has already exited or been killed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrRegistryDestroyed is returned once Destroy has been issued; the
	// registry accepts no further operations.
	ErrRegistryDestroyed = errors.New("registry destroyed")
)
