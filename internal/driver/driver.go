// Package driver spawns and terminates the sidecar child process.
package driver

import (
	"io"
)

// Handle is an owned, live child process.
type Handle interface {
	// PID returns the OS process id.
	PID() int

	// Kill sends the platform kill signal. Killing an already-exited
	// process is not an error.
	Kill() error

	// Wait blocks until the process exits. The exit status is not an error;
	// only a failure to wait is. It is safe to call more than once.
	Wait() error
}

// Options controls where the child's output goes. Nil writers discard.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Spawner starts an executable and returns its handle.
type Spawner func(path string, opts Options) (Handle, error)
