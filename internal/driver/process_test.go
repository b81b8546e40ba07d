//go:build !windows

package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benaskins/sidecar/internal/logbuf"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backend-server")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStartAndWait(t *testing.T) {
	p, err := Start(script(t, "exit 0"), Options{})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if p.PID() <= 0 {
		t.Errorf("expected positive PID, got %d", p.PID())
	}
	if err := p.Wait(); err != nil {
		t.Errorf("unexpected wait error: %v", err)
	}
	if !p.Exited() {
		t.Error("expected Exited after Wait")
	}
	if p.Alive() {
		t.Error("expected not alive after Wait")
	}
}

func TestStdoutCapture(t *testing.T) {
	tail := logbuf.New(10)
	p, err := Start(script(t, "echo hello world; echo oops >&2"), Options{Stdout: tail, Stderr: tail})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	p.Wait()

	joined := strings.Join(tail.Lines(), "\n")
	if !strings.Contains(joined, "hello world") || !strings.Contains(joined, "oops") {
		t.Errorf("expected stdout and stderr captured, got %q", joined)
	}
}

func TestNoArgumentsInheritedEnv(t *testing.T) {
	t.Setenv("SIDECAR_TEST_VAR", "inherited")
	tail := logbuf.New(10)
	p, err := Start(script(t, `echo "args=$#"; echo "var=$SIDECAR_TEST_VAR"`), Options{Stdout: tail})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	p.Wait()

	lines := tail.Lines()
	if len(lines) != 2 || lines[0] != "args=0" || lines[1] != "var=inherited" {
		t.Errorf("unexpected output %q", lines)
	}
}

func TestKillThenWait(t *testing.T) {
	p, err := Start(script(t, "exec sleep 60"), Options{})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if !p.Alive() {
		t.Fatal("expected process alive after start")
	}

	if err := p.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("wait after kill should not fail: %v", err)
		}
		if code := p.ExitCode(); code != -1 {
			t.Errorf("expected exit code -1 for a killed process, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait hung after Kill")
	}
}

func TestKillAfterExit(t *testing.T) {
	p, err := Start(script(t, "exit 0"), Options{})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	p.Wait()

	if err := p.Kill(); err != nil {
		t.Errorf("killing an exited process should not error: %v", err)
	}
}

func TestWaitTwice(t *testing.T) {
	p, err := Start(script(t, "exit 3"), Options{})
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if code := p.ExitCode(); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
}

func TestStartMissingExecutable(t *testing.T) {
	if _, err := Start(filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Error("expected error starting a missing executable")
	}
}

func TestStartNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend-server")
	if err := os.WriteFile(path, []byte("not a program"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Spawn(path, Options{}); err == nil {
		t.Error("expected permission error")
	}
}
