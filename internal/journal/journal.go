// Package journal records sidecar lifecycle events.
//
// Every transition the supervisor makes (resolution failure, spawn, readiness
// outcome, stop) is appended to a journal file as newline-delimited JSON so a
// degraded "backend unavailable" session can be diagnosed after the fact.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event describes what happened.
type Event string

const (
	EventResolveFailed Event = "resolve_failed"
	EventSpawnFailed   Event = "spawn_failed"
	EventSpawned       Event = "spawned"
	EventReady         Event = "ready"
	EventReadyTimeout  Event = "ready_timeout"
	EventStopped       Event = "stopped"
	EventStopFailed    Event = "stop_failed"
)

// Entry is a single journal record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Event     Event     `json:"event"`
	Path      string    `json:"path,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Recorder accepts journal entries.
type Recorder interface {
	Record(Entry) error
}

// File writes entries to an append-only file.
type File struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or opens a journal file for appending.
func Open(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &File{file: f}, nil
}

// Record appends an entry, stamping it with the current time if unset.
func (j *File) Record(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (j *File) Close() error {
	return j.file.Close()
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Record(Entry) error { return nil }
