package driver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps copying output after the child exits,
// in case a grandchild inherited the pipes.
const waitDelay = 2 * time.Second

// Process is a spawned sidecar.
type Process struct {
	cmd *exec.Cmd

	waitOnce sync.Once
	waitErr  error
	exitCode int
	done     chan struct{}
}

// Spawn starts path with no arguments and the inherited environment.
func Spawn(path string, opts Options) (Handle, error) {
	p, err := Start(path, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Start is Spawn returning the concrete type.
func Start(path string, opts Options) (*Process, error) {
	cmd := exec.Command(path)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}

	return &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}, nil
}

func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

func (p *Process) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Wait reaps the process. A non-zero exit or a kill signal is not an error;
// only a failure to wait is. The status is available from ExitCode.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
			err = nil
		}
		p.waitErr = err
		close(p.done)
	})
	<-p.done
	return p.waitErr
}

// ExitCode returns the exit code observed by Wait, -1 if the process was
// terminated by a signal, or 0 before Wait returns.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return 0
	}
	return p.exitCode
}

// Exited reports whether Wait has observed the process exit.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Alive reports whether the OS still knows the process. A process that
// exited but has not been waited for may still report alive on unix.
func (p *Process) Alive() bool {
	if p.Exited() {
		return false
	}
	return processAlive(p.PID())
}
