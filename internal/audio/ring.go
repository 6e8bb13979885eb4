// SPDX-License-Identifier: MIT
package audio

import "sync"

// ring is a bounded byte FIFO between a writer that blocks when it is full
// and a reader that never blocks.
type ring struct {
	mu     sync.Mutex
	space  *sync.Cond
	buf    []byte
	head   int
	size   int
	closed bool
}

func newRing(capacity int) *ring {
	r := &ring{buf: make([]byte, capacity)}
	r.space = sync.NewCond(&r.mu)
	return r
}

// Write queues all of p, waiting for space as needed. It returns early with
// the bytes queued so far if the ring is closed.
func (r *ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for n < len(p) {
		for r.size == len(r.buf) && !r.closed {
			r.space.Wait()
		}
		if r.closed {
			return n, ErrLineClosed
		}
		tail := (r.head + r.size) % len(r.buf)
		end := len(r.buf)
		if tail < r.head {
			end = r.head
		}
		k := copy(r.buf[tail:end], p[n:])
		r.size += k
		n += k
	}
	return n, nil
}

// Read moves up to len(p) queued bytes into p and returns how many it moved.
func (r *ring) Read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for n < len(p) && r.size > 0 {
		end := min(len(r.buf), r.head+r.size)
		k := copy(p[n:], r.buf[r.head:end])
		r.head = (r.head + k) % len(r.buf)
		r.size -= k
		n += k
	}
	if n > 0 {
		r.space.Broadcast()
	}
	return n
}

func (r *ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *ring) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.size
}

func (r *ring) Cap() int { return len(r.buf) }

// Reset drops everything queued.
func (r *ring) Reset() {
	r.mu.Lock()
	r.head, r.size = 0, 0
	r.mu.Unlock()
	r.space.Broadcast()
}

// Close wakes blocked writers; later writes fail.
func (r *ring) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.space.Broadcast()
}
