// Package shutdown stops the sidecar exactly once when the application closes.
package shutdown

import (
	"log/slog"
	"sync"
)

// Stopper terminates whatever the application launched.
type Stopper interface {
	Stop()
}

// Coordinator reacts to the close request of the application.
type Coordinator struct {
	stopper Stopper
	once    sync.Once
	logger  *slog.Logger
}

// New returns a coordinator that stops s on the first close request.
func New(s Stopper) *Coordinator {
	return &Coordinator{
		stopper: s,
		logger:  slog.With("component", "shutdown"),
	}
}

// CloseRequested runs Stop synchronously on the first call and reports
// whether it did. Later calls return false immediately. An in-flight
// readiness probe is left to finish on its own.
func (c *Coordinator) CloseRequested() bool {
	ran := false
	c.once.Do(func() {
		c.logger.Info("close requested, stopping backend")
		c.stopper.Stop()
		ran = true
	})
	return ran
}
