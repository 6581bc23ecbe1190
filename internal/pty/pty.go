package pty

import (
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// LocalBridge spawns shells on the local machine with a PTY attached.
type LocalBridge struct{}

// NewLocalBridge creates a PTY-backed bridge.
func NewLocalBridge() *LocalBridge {
	return &LocalBridge{}
}

// Spawn starts a shell attached to a new pseudo-terminal.
func (b *LocalBridge) Spawn(shell, workingDir string, cols, rows int, cb Callbacks) (Handle, error) {
	if shell == "" {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
	}

	if workingDir == "" {
		workingDir = os.Getenv("HOME")
		if workingDir == "" {
			workingDir = "/tmp"
		}
	}

	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	cmd := exec.Command(shell)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, &SpawnError{Shell: shell, Err: err}
	}

	h := &localHandle{
		cmd:  cmd,
		ptmx: ptmx,
	}

	go h.readLoop(cb)
	go h.monitor(cb)

	return h, nil
}

// localHandle wraps a running shell process and its PTY master.
type localHandle struct {
	cmd  *exec.Cmd
	ptmx *os.File

	writeMu sync.Mutex // Serializes writes

	mu     sync.Mutex
	closed bool
}

// readLoop forwards PTY output until the stream ends.
func (h *localHandle) readLoop(cb Callbacks) {
	buf := make([]byte, 4096)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 && cb.OnData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			cb.OnData(chunk)
		}
		if err != nil {
			// EOF or a closed PTY ends the session stream
			return
		}
	}
}

// monitor waits for process exit, closes the PTY, and reports the exit state.
func (h *localHandle) monitor(cb Callbacks) {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.ptmx.Close()

	code := 0
	signal := ""
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
		if code == -1 {
			// Terminated by signal rather than exit
			signal = exitErr.String()
			code = 1
		}
	} else if err != nil {
		code = 1
	}

	if cb.OnExit != nil {
		cb.OnExit(code, signal)
	}
}

func (h *localHandle) Write(data []byte) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()

	if closed {
		return os.ErrClosed
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	_, err := h.ptmx.Write(data)
	return err
}

func (h *localHandle) Resize(cols, rows int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return os.ErrClosed
	}

	return pty.Setsize(h.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

func (h *localHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil // Already closed
	}
	h.closed = true

	if h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}

	return h.ptmx.Close()
}
