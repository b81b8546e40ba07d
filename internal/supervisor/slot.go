package supervisor

import (
	"sync"

	"github.com/benaskins/sidecar/internal/driver"
)

// Slot holds at most one live sidecar handle for the lifetime of the
// application. It is filled at most once and emptied at most once.
//
// The lock is held only across the store or take, never across spawn, kill,
// wait or network I/O.
type Slot struct {
	mu     sync.Mutex
	handle driver.Handle
	filled bool // a handle was published at some point
	closed bool // Take has run; nothing may be published any more
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores h. It reports false, leaving the slot unchanged, if a handle
// was already published or the slot has been closed by Take. The caller keeps
// ownership of h in that case.
func (s *Slot) Publish(h driver.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filled || s.closed {
		return false
	}
	s.handle = h
	s.filled = true
	return true
}

// Take empties the slot and closes it against later publishes. It returns the
// handle that was stored, or nil.
func (s *Slot) Take() driver.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle
	s.handle = nil
	s.closed = true
	return h
}

// PID returns the pid of the stored handle, or 0 when empty.
func (s *Slot) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.PID()
}

// Closed reports whether Take has run.
func (s *Slot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
