// Package logbuf keeps the most recent lines written by the sidecar process.
package logbuf

import (
	"bytes"
	"sync"
)

// DefaultLines is the tail size used when New is given a non-positive size.
const DefaultLines = 200

// maxPartial caps an unterminated line so a child writing without newlines
// cannot grow the buffer unbounded.
const maxPartial = 4096

// Tail is a concurrency-safe io.Writer that retains the last N complete lines.
type Tail struct {
	mu      sync.Mutex
	lines   []string
	start   int // index of the oldest line
	count   int
	partial []byte
}

// New creates a tail that keeps n lines.
func New(n int) *Tail {
	if n <= 0 {
		n = DefaultLines
	}
	return &Tail{lines: make([]string, n)}
}

// Write splits p on newlines. A trailing fragment is held until its newline arrives.
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			t.partial = append(t.partial, data...)
			if len(t.partial) > maxPartial {
				t.push(string(t.partial))
				t.partial = t.partial[:0]
			}
			break
		}
		line := append(t.partial, data[:i]...)
		t.push(string(bytes.TrimSuffix(line, []byte{'\r'})))
		t.partial = t.partial[:0]
		data = data[i+1:]
	}
	return len(p), nil
}

func (t *Tail) push(line string) {
	size := len(t.lines)
	if t.count < size {
		t.lines[(t.start+t.count)%size] = line
		t.count++
		return
	}
	t.lines[t.start] = line
	t.start = (t.start + 1) % size
}

// Lines returns the retained lines, oldest first.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, t.count)
	for i := range out {
		out[i] = t.lines[(t.start+i)%len(t.lines)]
	}
	return out
}

// Last returns at most n of the newest lines.
func (t *Tail) Last(n int) []string {
	all := t.Lines()
	if n <= 0 {
		return nil
	}
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
