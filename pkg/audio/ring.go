// Package audio implements the speaker side of the wisp runtime: the
// bounded ring buffer fed by the network, the streaming playback engine
// that drains it, and the legacy buffered-response player.
package audio

import "sync/atomic"

// Ring is a fixed-capacity byte ring with a single producer (the network
// event callback) and a single consumer (the playback worker). Cursors are
// atomics so the two sides need no lock: each side only ever writes its own
// cursor and reads the other's. One byte of slack distinguishes full from
// empty, so at most capacity-1 live bytes are held.
type Ring struct {
	buf []byte

	// write is advanced only by Push, read only by ReadChunk.
	write atomic.Uint64
	read  atomic.Uint64
}

// NewRing allocates a ring with the given capacity in bytes.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]byte, capacity)}
}

// Capacity returns the allocated size. Usable space is Capacity()-1.
func (r *Ring) Capacity() int { return len(r.buf) }

// Available returns the number of live bytes ready for the consumer.
func (r *Ring) Available() int {
	w := r.write.Load()
	rd := r.read.Load()
	if w >= rd {
		return int(w - rd)
	}
	return len(r.buf) - int(rd) + int(w)
}

// Free returns the number of bytes a push can still accept.
func (r *Ring) Free() int {
	return len(r.buf) - 1 - r.Available()
}

// Push appends data if it fits entirely, returning false (and writing
// nothing) otherwise. Producer side only.
func (r *Ring) Push(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if len(data) > r.Free() {
		return false
	}

	w := int(r.write.Load())
	tail := len(r.buf) - w
	if len(data) <= tail {
		copy(r.buf[w:], data)
		w += len(data)
	} else {
		copy(r.buf[w:], data[:tail])
		copy(r.buf, data[tail:])
		w = len(data) - tail
	}
	if w >= len(r.buf) {
		w = 0
	}
	r.write.Store(uint64(w))
	return true
}

// ReadChunk copies up to len(dst) bytes into dst and returns the count.
// It never reads more than is available. Consumer side only.
func (r *Ring) ReadChunk(dst []byte) int {
	n := r.Available()
	if n == 0 || len(dst) == 0 {
		return 0
	}
	if n > len(dst) {
		n = len(dst)
	}

	rd := int(r.read.Load())
	tail := len(r.buf) - rd
	if n <= tail {
		copy(dst, r.buf[rd:rd+n])
		rd += n
	} else {
		copy(dst, r.buf[rd:])
		copy(dst[tail:], r.buf[:n-tail])
		rd = n - tail
	}
	if rd >= len(r.buf) {
		rd = 0
	}
	r.read.Store(uint64(rd))
	return n
}

// Drain advances the read cursor past everything currently buffered,
// discarding it, and returns the count. Consumer side only: the write
// cursor is never touched, so a concurrent push stays well-formed.
func (r *Ring) Drain() int {
	n := r.Available()
	if n == 0 {
		return 0
	}
	rd := int(r.read.Load()) + n
	if rd >= len(r.buf) {
		rd -= len(r.buf)
	}
	r.read.Store(uint64(rd))
	return n
}
