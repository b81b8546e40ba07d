// Package supervisor launches the backend sidecar, waits for it to become
// ready and terminates it on shutdown.
//
// Start never blocks the caller: resolution, spawn and readiness polling run
// on worker goroutines. The readiness outcome is logged and journaled but is
// never fed back into the supervisor's state, so the application keeps running
// in a degraded mode when the backend is missing or slow.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/benaskins/sidecar/internal/driver"
	"github.com/benaskins/sidecar/internal/health"
	"github.com/benaskins/sidecar/internal/journal"
	"github.com/benaskins/sidecar/internal/locate"
	"github.com/benaskins/sidecar/internal/logbuf"
	"github.com/benaskins/sidecar/internal/metrics"
	"github.com/benaskins/sidecar/internal/port"
	"github.com/benaskins/sidecar/internal/worker"
)

// State is the supervisor lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateStarting    State = "starting"
	StateRunning     State = "running"
	StateStartFailed State = "start-failed"
	StateStopped     State = "stopped"
)

var (
	ErrPathResolution = errors.New("backend sidecar not found")
	ErrSpawn          = errors.New("backend sidecar failed to spawn")
	ErrProbeTimeout   = errors.New("backend sidecar not ready before deadline")
	ErrShutdown       = errors.New("backend sidecar shutdown failed")
)

// tailOnTimeout is how many captured output lines are logged when the
// sidecar misses its readiness deadline.
const tailOnTimeout = 20

// Resolver returns the sidecar executable path, or false if none exists.
type Resolver func() (string, bool)

// Supervisor owns the lifecycle of one sidecar process.
type Supervisor struct {
	slot        *Slot
	resolve     Resolver
	resourceDir string
	spawn       driver.Spawner
	health      health.Config
	journal     journal.Recorder
	tail        *logbuf.Tail
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger

	preflight bool
	tasks     worker.Group

	mu         sync.Mutex
	state      State
	lastErr    error
	pollCancel context.CancelFunc

	// reportMu orders a readiness report against the Take in Stop.
	reportMu sync.Mutex
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithResolver replaces the on-disk path lookup.
func WithResolver(r Resolver) Option {
	return func(s *Supervisor) {
		s.resolve = r
	}
}

// WithResourceDir resolves the sidecar against an explicit resource directory.
func WithResourceDir(dir string) Option {
	return func(s *Supervisor) {
		s.resourceDir = dir
	}
}

// WithSpawner replaces process creation.
func WithSpawner(fn driver.Spawner) Option {
	return func(s *Supervisor) {
		s.spawn = fn
	}
}

// WithHealth sets the readiness probe configuration.
func WithHealth(cfg health.Config) Option {
	return func(s *Supervisor) {
		s.health = cfg
	}
}

// WithJournal records lifecycle events to j.
func WithJournal(j journal.Recorder) Option {
	return func(s *Supervisor) {
		s.journal = j
	}
}

// WithOutput tees the sidecar's stdout and stderr to the given writers in
// addition to the tail buffer. Nil writers are skipped.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithTail captures sidecar output into t instead of a private buffer.
func WithTail(t *logbuf.Tail) Option {
	return func(s *Supervisor) {
		if t != nil {
			s.tail = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithPreflight toggles the port-in-use warning before spawn.
func WithPreflight(enabled bool) Option {
	return func(s *Supervisor) {
		s.preflight = enabled
	}
}

// New creates a supervisor that publishes its process into slot.
func New(slot *Slot, opts ...Option) *Supervisor {
	s := &Supervisor{
		slot:      slot,
		spawn:     driver.Spawn,
		journal:   journal.Discard{},
		tail:      logbuf.New(logbuf.DefaultLines),
		logger:    slog.With("component", "supervisor"),
		preflight: true,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolve == nil {
		s.resolve = hostResolver(s.resourceDir, s.logger)
	}
	s.tasks.OnPanic = func(err error) {
		s.logger.Error("supervisor task panicked", "error", err)
	}
	return s
}

func hostResolver(resourceDir string, logger *slog.Logger) Resolver {
	return func() (string, bool) {
		return locate.Resolve(runtime.GOOS, locate.Host(resourceDir), logger)
	}
}

// Start launches the sidecar in the background and returns immediately.
// Only the first call has any effect. Cancelling ctx before the background
// task begins its spawn aborts the start; after that the spawn and the
// readiness window run to completion.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("backend start ignored", "state", state)
		return
	}
	if s.slot.Closed() {
		s.mu.Unlock()
		s.logger.Warn("backend start ignored after shutdown")
		return
	}
	s.state = StateStarting
	s.mu.Unlock()

	s.tasks.Go(func() { s.run(ctx) })
}

type spawned struct {
	path   string
	handle driver.Handle
}

func (s *Supervisor) run(ctx context.Context) {
	// Spawn and readiness must not be abandoned half way: an abandoned spawn
	// would leak a process nobody owns.
	bg := context.WithoutCancel(ctx)

	sp, err := worker.Run(bg, func() (spawned, error) {
		if err := ctx.Err(); err != nil {
			return spawned{}, err
		}
		path, ok := s.resolve()
		if !ok {
			return spawned{}, ErrPathResolution
		}
		if s.preflight {
			port.Preflight(s.probePort(), s.logger)
		}
		h, err := s.spawn(path, s.outputs())
		if err != nil {
			return spawned{path: path}, fmt.Errorf("%w: %w", ErrSpawn, err)
		}
		return spawned{path: path, handle: h}, nil
	})
	if err != nil {
		s.startFailed(sp.path, err)
		return
	}

	if !s.slot.Publish(sp.handle) {
		// Shutdown won the race; nobody else will ever reap this process.
		s.logger.Warn("backend spawned after shutdown, terminating", "pid", sp.handle.PID())
		s.terminate(sp.handle)
		s.setState(StateStopped, nil)
		return
	}

	s.setState(StateRunning, nil)
	metrics.IncStart("spawned")
	metrics.SetRunning(true)
	s.record(journal.Entry{Event: journal.EventSpawned, Path: sp.path, PID: sp.handle.PID()})
	s.logger.Info("backend process spawned", "path", sp.path, "pid", sp.handle.PID())

	pctx, cancel := context.WithCancel(bg)
	defer cancel()
	s.mu.Lock()
	s.pollCancel = cancel
	s.mu.Unlock()
	if s.slot.Closed() {
		cancel()
	}

	res, err := worker.Run(bg, func() (health.Result, error) {
		return health.Poll(pctx, s.health, s.logger), nil
	})
	if err != nil {
		s.logger.Error("readiness check task failed", "error", err)
		return
	}

	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if s.slot.Closed() || res.Readiness == health.ReadinessUndetermined {
		s.logger.Debug("discarding readiness result after shutdown",
			"readiness", res.Readiness, "attempts", res.Attempts)
		return
	}
	s.reportReadiness(res)
}

func (s *Supervisor) startFailed(path string, err error) {
	s.setState(StateStartFailed, err)

	switch {
	case errors.Is(err, ErrPathResolution):
		metrics.IncStart("not_found")
		s.record(journal.Entry{Event: journal.EventResolveFailed, Error: err.Error()})
		s.logger.Error("backend sidecar unavailable, continuing without it")
	case errors.Is(err, ErrSpawn):
		metrics.IncStart("spawn_failed")
		s.record(journal.Entry{Event: journal.EventSpawnFailed, Path: path, Error: err.Error()})
		s.logger.Error("failed to spawn backend", "path", path, "error", err)
	default:
		metrics.IncStart("aborted")
		s.logger.Warn("backend start aborted", "error", err)
	}
}

func (s *Supervisor) reportReadiness(res health.Result) {
	metrics.ObserveReadiness(string(res.Readiness), res.Attempts, res.Elapsed)
	entry := journal.Entry{Attempts: res.Attempts, ElapsedMS: res.Elapsed.Milliseconds()}

	switch res.Readiness {
	case health.ReadinessReady:
		entry.Event = journal.EventReady
		s.logger.Info("backend ready",
			"url", fmt.Sprintf("http://127.0.0.1:%d", s.probePort()),
			"attempts", res.Attempts,
			"elapsed", res.Elapsed.Round(time.Millisecond))
	case health.ReadinessTimedOut:
		entry.Event = journal.EventReadyTimeout
		entry.Error = ErrProbeTimeout.Error()
		s.logger.Error("backend did not become ready",
			"timeout", s.probeTimeout(),
			"attempts", res.Attempts)
		if lines := s.tail.Last(tailOnTimeout); len(lines) > 0 {
			s.logger.Warn("recent backend output", "lines", lines)
		}
	default:
		return
	}
	s.record(entry)
}

// Stop terminates the sidecar if one is running. Kill and wait failures are
// logged and swallowed. Only the first call after a successful start does
// anything; later calls are no-ops.
func (s *Supervisor) Stop() {
	s.reportMu.Lock()
	h := s.slot.Take()
	s.reportMu.Unlock()

	s.mu.Lock()
	if s.pollCancel != nil {
		s.pollCancel()
	}
	s.mu.Unlock()

	if h == nil {
		metrics.IncStop("noop")
		s.logger.Info("no backend process to stop")
		return
	}

	pid := h.PID()
	s.logger.Info("stopping backend process", "pid", pid)
	if err := s.terminate(h); err != nil {
		err = fmt.Errorf("%w: %w", ErrShutdown, err)
		metrics.IncStop("error")
		s.record(journal.Entry{Event: journal.EventStopFailed, PID: pid, Error: err.Error()})
		s.setState(StateStopped, err)
	} else {
		metrics.IncStop("stopped")
		s.record(journal.Entry{Event: journal.EventStopped, PID: pid})
		s.setState(StateStopped, nil)
	}
	metrics.SetRunning(false)
}

// terminate kills then reaps h, logging each failure. The returned error is
// informational only.
func (s *Supervisor) terminate(h driver.Handle) error {
	var errs []error
	if err := h.Kill(); err != nil {
		s.logger.Error("failed to kill backend process", "pid", h.PID(), "error", err)
		errs = append(errs, fmt.Errorf("kill: %w", err))
	}
	if err := h.Wait(); err != nil {
		s.logger.Error("failed to wait for backend process", "pid", h.PID(), "error", err)
		errs = append(errs, fmt.Errorf("wait: %w", err))
	}
	return errors.Join(errs...)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error behind the most recent failed transition.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// PID returns the running sidecar's pid, or 0.
func (s *Supervisor) PID() int {
	return s.slot.PID()
}

// Tail returns the buffer that captures sidecar output.
func (s *Supervisor) Tail() *logbuf.Tail {
	return s.tail
}

// Wait blocks until background start and readiness work has finished.
func (s *Supervisor) Wait() {
	s.tasks.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether the work finished.
func (s *Supervisor) WaitTimeout(d time.Duration) bool {
	return s.tasks.WaitTimeout(d)
}

func (s *Supervisor) setState(st State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	if err != nil {
		s.lastErr = err
	}
}

func (s *Supervisor) record(e journal.Entry) {
	if err := s.journal.Record(e); err != nil {
		s.logger.Warn("failed to write journal entry", "event", e.Event, "error", err)
	}
}

func (s *Supervisor) outputs() driver.Options {
	return driver.Options{
		Stdout: tee(s.tail, s.stdout),
		Stderr: tee(s.tail, s.stderr),
	}
}

func tee(tail *logbuf.Tail, w io.Writer) io.Writer {
	if w == nil {
		return tail
	}
	return io.MultiWriter(tail, w)
}

func (s *Supervisor) probePort() int {
	if s.health.Port > 0 {
		return s.health.Port
	}
	return health.DefaultPort
}

func (s *Supervisor) probeTimeout() time.Duration {
	if s.health.Timeout > 0 {
		return s.health.Timeout
	}
	return health.DefaultTimeout
}
