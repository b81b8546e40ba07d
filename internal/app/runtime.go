// Package app hosts the sidecar on behalf of an application frontend.
//
// A frontend fires exactly two events into the runtime: Setup once the
// application is up, and CloseRequested when the user asks it to close.
// Both run on the frontend's event loop and never block it for long.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benaskins/sidecar/internal/shutdown"
	"github.com/benaskins/sidecar/internal/supervisor"
)

// Runtime owns the process slot, the supervisor and the shutdown coordinator
// for one application run.
type Runtime struct {
	slot       *supervisor.Slot
	supervisor *supervisor.Supervisor
	shutdown   *shutdown.Coordinator
	devMode    bool
	port       int
	logger     *slog.Logger
}

// Options configures a Runtime.
type Options struct {
	// DevMode skips launching the sidecar; the developer runs it by hand.
	DevMode bool

	// Port is the sidecar port, used for the dev mode hint.
	Port int

	// Supervisor options passed through to supervisor.New.
	Supervisor []supervisor.Option
}

// NewRuntime wires a fresh slot, supervisor and shutdown coordinator.
func NewRuntime(opts Options) *Runtime {
	slot := supervisor.NewSlot()
	sup := supervisor.New(slot, opts.Supervisor...)
	return &Runtime{
		slot:       slot,
		supervisor: sup,
		shutdown:   shutdown.New(sup),
		devMode:    opts.DevMode,
		port:       opts.Port,
		logger:     slog.With("component", "app"),
	}
}

// Setup is the application setup hook. It returns as soon as the sidecar
// start has been dispatched.
func (r *Runtime) Setup(ctx context.Context) {
	if r.devMode {
		port := r.port
		if port == 0 {
			port = 8000
		}
		r.logger.Info("dev mode: start the backend manually",
			"url", fmt.Sprintf("http://127.0.0.1:%d", port))
		return
	}
	r.supervisor.Start(ctx)
}

// CloseRequested is the window-close hook. The first call stops the sidecar
// synchronously; later calls do nothing.
func (r *Runtime) CloseRequested() {
	r.shutdown.CloseRequested()
}

// Supervisor exposes the supervisor for status display.
func (r *Runtime) Supervisor() *supervisor.Supervisor {
	return r.supervisor
}

// PID returns the pid held in the process slot, or 0 when no backend is live.
func (r *Runtime) PID() int {
	return r.slot.PID()
}

// DevMode reports whether the sidecar is left to the developer.
func (r *Runtime) DevMode() bool {
	return r.devMode
}
