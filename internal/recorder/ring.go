package recorder

import (
	"errors"
	"sync"
)

// ErrOverflow is returned by Ring.Reserve when a reservation does not fit.
// Overflow is always fatal to the session: producers run on latency-sensitive
// device callbacks and must never wait for space.
var ErrOverflow = errors.New("ring buffer overflow")

// Ring is a fixed-capacity circular store backed by a contiguous arena.
// A session uses three of them: sample payloads (int16), block descriptors,
// and gain-change events.
//
// Producers call Reserve and then fill the reserved span of Buf directly;
// Reserve never blocks. For rings with a waiting consumer, Publish makes
// filled items visible and signals the consumer. The consumer side
// (AwaitReady, TakeReady, ReadIndex, AdvanceRead, Release) is single-threaded
// by contract and only Release/TakeReady touch shared counters.
type Ring[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond

	buf      []T
	capacity uint32
	read     uint32
	write    uint32
	used     uint32
	peak     uint32
	nready   uint32
}

// NewRing returns a ring with the given fixed capacity. Capacity cannot be
// changed afterwards; a new session allocates fresh rings.
func NewRing[T any](capacity uint32) *Ring[T] {
	r := &Ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
	r.ready = sync.NewCond(&r.mu)
	return r
}

// Reserve claims n contiguous slots for writing and returns the start index.
// It succeeds iff used+n fits within capacity; when the span would not fit
// contiguously before the end of the arena, the write position skips to zero
// and the skipped tail is sacrificed as temporarily unusable capacity for
// this check. On failure it returns ErrOverflow and mutates nothing.
func (r *Ring[T]) Reserve(n uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.capacity
	start := r.write
	if start+n > r.capacity {
		limit -= r.capacity - start
		start = 0
	}
	if r.used+n > limit {
		return 0, ErrOverflow
	}
	r.write = (start + n) % r.capacity
	r.used += n
	if r.used > r.peak {
		r.peak = r.used
	}
	return start, nil
}

// Buf exposes the backing arena. The span returned by Reserve is always
// contiguous, so buf[start:start+n] is valid.
func (r *Ring[T]) Buf() []T {
	return r.buf
}

// At returns a pointer to the slot at index i.
func (r *Ring[T]) At(i uint32) *T {
	return &r.buf[i]
}

// Publish marks k reserved-and-filled items as ready and wakes the consumer.
func (r *Ring[T]) Publish(k uint32) {
	r.mu.Lock()
	r.nready += k
	r.mu.Unlock()
	r.ready.Signal()
}

// AwaitReady blocks until at least min items are ready or aborted reports
// true, and returns the current ready count. aborted is re-checked after
// every wakeup; Wake broadcasts the condition without publishing anything.
func (r *Ring[T]) AwaitReady(min uint32, aborted func() bool) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.nready < min && !aborted() {
		r.ready.Wait()
	}
	return r.nready
}

// Wake unblocks any AwaitReady caller so it can re-check for abort.
func (r *Ring[T]) Wake() {
	r.ready.Broadcast()
}

// Ready returns the current ready count.
func (r *Ring[T]) Ready() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nready
}

// TakeReady consumes k from the ready count. Consumer only.
func (r *Ring[T]) TakeReady(k uint32) {
	r.mu.Lock()
	r.nready -= k
	r.mu.Unlock()
}

// Release returns n slots to the ring after their contents have been fully
// written out. Consumer only.
func (r *Ring[T]) Release(n uint32) {
	r.mu.Lock()
	r.used -= n
	r.mu.Unlock()
}

// ReadIndex returns the consumer read position. Only the consumer touches it,
// so no lock is taken.
func (r *Ring[T]) ReadIndex() uint32 {
	return r.read
}

// AdvanceRead moves the consumer read position forward by n, modulo capacity.
func (r *Ring[T]) AdvanceRead(n uint32) {
	r.read = (r.read + n) % r.capacity
}

// Used returns the current number of occupied slots.
func (r *Ring[T]) Used() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// PeakUsed returns the high-water mark of occupied slots.
func (r *Ring[T]) PeakUsed() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// Capacity returns the fixed capacity.
func (r *Ring[T]) Capacity() uint32 {
	return r.capacity
}
