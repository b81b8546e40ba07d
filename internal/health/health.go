package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Readiness is the outcome of one polling loop.
type Readiness string

const (
	ReadinessUndetermined Readiness = "undetermined"
	ReadinessReady        Readiness = "ready"
	ReadinessTimedOut     Readiness = "timed-out"
)

const (
	DefaultPort        = 8000
	DefaultPath        = "/health"
	DefaultTimeout     = 15 * time.Second
	DefaultInterval    = 250 * time.Millisecond
	DefaultDialTimeout = 500 * time.Millisecond
	DefaultIOTimeout   = 500 * time.Millisecond
)

// Config holds readiness probe settings. Zero values fall back to the defaults.
type Config struct {
	Port        int
	Path        string
	Timeout     time.Duration // whole polling window
	Interval    time.Duration // sleep between attempts
	DialTimeout time.Duration // per attempt connect
	IOTimeout   time.Duration // per attempt read/write
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	return c
}

// Result describes a finished polling loop.
type Result struct {
	Readiness Readiness
	Attempts  int
	Elapsed   time.Duration
}

// Poll probes the endpoint until it answers 200 or the timeout elapses.
// At least one attempt is always made. Attempt failures are never returned;
// they only delay the outcome.
func Poll(ctx context.Context, cfg Config, logger *slog.Logger) Result {
	return poll(ctx, cfg, NewClient(cfg), logger)
}

type checker interface {
	StatusLine(ctx context.Context) (string, error)
}

func poll(ctx context.Context, cfg Config, c checker, logger *slog.Logger) Result {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	// One failure line per second is plenty for a 15s window.
	failLog := rate.NewLimiter(rate.Every(time.Second), 1)

	start := time.Now()
	deadline := start.Add(cfg.Timeout)
	result := Result{Readiness: ReadinessUndetermined}

	for {
		result.Attempts++
		line, err := c.StatusLine(ctx)
		if err == nil && IsSuccess(line) {
			result.Readiness = ReadinessReady
			result.Elapsed = time.Since(start)
			return result
		}
		if failLog.Allow() {
			if err == nil {
				err = fmt.Errorf("unexpected status %q", line)
			}
			logger.Debug("readiness attempt failed", "attempt", result.Attempts, "error", err)
		}

		if !time.Now().Before(deadline) {
			result.Readiness = ReadinessTimedOut
			result.Elapsed = time.Since(start)
			return result
		}

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Elapsed = time.Since(start)
			return result
		case <-timer.C:
		}
	}
}
