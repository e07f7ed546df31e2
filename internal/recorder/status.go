package recorder

import "sync/atomic"

// Status is the shared lifecycle state of a recording session. It is the only
// channel through which fatal conditions cross the producer/consumer boundary:
// producers and the stream loop run on unrelated goroutines with no call
// relationship, so there is no error return path between them.
type Status int32

const (
	StatusUnknown Status = iota
	StatusStarting
	StatusRunning
	StatusTerminate
	StatusDone
	StatusFailed
	StatusBlocksFull
	StatusSamplesFull
	StatusGainChangesFull
)

// Terminal reports whether s is an end state. Once a session reaches a
// terminal status all producer invocations become no-ops and the stream loop
// exits; there is no resumption.
func (s Status) Terminal() bool {
	return s >= StatusDone
}

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusTerminate:
		return "terminate"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusBlocksFull:
		return "blocks-buffer-full"
	case StatusSamplesFull:
		return "samples-buffer-full"
	case StatusGainChangesFull:
		return "gain-changes-buffer-full"
	default:
		return "unknown"
	}
}

// lifecycle is an atomic Status. Readers on the producer hot path load it
// without any lock; a slightly stale view is tolerated because actual
// termination is carried by the end-of-stream descriptor, not by the flag
// alone. The worst case is one extra frame processed after a termination
// request.
type lifecycle struct {
	v atomic.Int32
}

func (l *lifecycle) Load() Status {
	return Status(l.v.Load())
}

func (l *lifecycle) Store(s Status) {
	l.v.Store(int32(s))
}

// RequestTerminate flips RUNNING to TERMINATE. It is safe to call from a
// signal handler goroutine, a deadline timer, or an HTTP handler; only the
// first caller wins, and a session that is not running is left untouched.
func (l *lifecycle) RequestTerminate() bool {
	return l.v.CompareAndSwap(int32(StatusRunning), int32(StatusTerminate))
}
