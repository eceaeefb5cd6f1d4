// SPDX-License-Identifier: MIT
package analysis

// Ring keeps the most recent Len() samples. It has a single writer and no locking.
type Ring struct {
	buf    []float64
	cursor int
}

// NewRing returns a zeroed ring. A capacity below one is raised to one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Write stores x at the cursor and advances it, overwriting the oldest sample.
func (r *Ring) Write(x float64) {
	r.buf[r.cursor] = x
	r.cursor++
	if r.cursor == len(r.buf) {
		r.cursor = 0
	}
}

// WriteSlice writes every sample of xs in order.
func (r *Ring) WriteSlice(xs []float64) {
	for _, x := range xs {
		r.Write(x)
	}
}

// Linearize returns a new slice ordered oldest to newest.
func (r *Ring) Linearize() []float64 {
	out := make([]float64, len(r.buf))
	r.LinearizeInto(out)
	return out
}

// LinearizeInto copies the buffer oldest-first into dst, which must hold at least Len() values.
func (r *Ring) LinearizeInto(dst []float64) {
	n := copy(dst, r.buf[r.cursor:])
	copy(dst[n:], r.buf[:r.cursor])
}

// Len is the capacity, which is also the length of a linearized copy.
func (r *Ring) Len() int { return len(r.buf) }

// Reset zeroes the contents and rewinds the cursor.
func (r *Ring) Reset() {
	clear(r.buf)
	r.cursor = 0
}
