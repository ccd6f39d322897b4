package ptysession

import (
	"sync"

	"pkt.systems/ailimit/internal/ansi"
)

// Buffer accumulates raw terminal output. It only grows until it is discarded
// with its session; normalization happens on read so escape sequences split
// across chunks are stripped exactly as if they had arrived in one piece.
type Buffer struct {
	mu  sync.Mutex
	raw []byte
}

// Write appends p to the buffer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.raw = append(b.raw, p...)
	b.mu.Unlock()
	return len(p), nil
}

// Raw returns the unmodified output captured so far.
func (b *Buffer) Raw() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.raw)
}

// Text returns the captured output with terminal control sequences removed.
func (b *Buffer) Text() string {
	return ansi.Strip(b.Raw())
}

// Len returns the number of raw bytes captured.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.raw)
}
