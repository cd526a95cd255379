// Package osthreads is the OS facade described by the sampling engine's
// external interfaces: monotonic time, sleep, thread id, thread
// enumeration, thread state, and signal delivery. The engine only ever
// talks to the Facade interface; internal/osthreads/osthreadstest ships a
// fully in-memory Facade for tests, and threads_linux.go backs it with
// /proc and golang.org/x/sys/unix on real Linux hosts.
package osthreads

import (
	"syscall"
	"time"
)

// ThreadState mirrors the OS-reported run state of a thread.
type ThreadState int

const (
	// Unknown is reported when the caller never asked the OS for a
	// thread's state (idle-sampling mode samples regardless of it).
	Unknown ThreadState = iota
	Running
	Sleeping
)

func (s ThreadState) String() string {
	switch s {
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// ThreadList is a cursor over the population of candidate threads. Next
// returns false once the cursor has reached the end; Rewind restarts it
// from the beginning. The cursor is deliberately stateful (rather than a
// fresh snapshot every call) so that TimerLoop's per-iteration cap over
// THREADS_PER_TICK gives every thread an equal long-run share instead of
// always favoring the front of the list.
type ThreadList interface {
	Next() (tid int64, ok bool)
	Rewind()
	Size() int
}

// SignalHandler is invoked when a simulated OS delivers sig to tid. It
// exists for Facade implementations that cannot rely on a real kernel
// signal handler (i.e. the test double); the production Linux facade
// installs the actual async-signal-safe handler via internal/nativesig
// and never calls a Go SignalHandler value from real signal context.
type SignalHandler func(tid int64)

// Facade is the OS abstraction the sampling engine is built against.
type Facade interface {
	// NowNS returns monotonic nanoseconds.
	NowNS() int64
	// Sleep sleeps for d, returning early if the facade is asked to wake
	// the calling thread (see WakeSleeper on the Linux implementation).
	Sleep(d time.Duration)
	// ThreadID returns the calling goroutine's underlying OS thread id.
	// Callers must have pinned the goroutine with runtime.LockOSThread.
	ThreadID() int64
	// ListThreads enumerates the current candidate population.
	ListThreads() (ThreadList, error)
	// ThreadState reports tid's OS-visible run state.
	ThreadState(tid int64) ThreadState
	// SendSignal delivers sig to tid, reporting false if tid no longer
	// exists.
	SendSignal(tid int64, sig syscall.Signal) bool
	// InstallSignalHandler installs h for sig. On the real Linux facade
	// the actual capture handler is installed natively by
	// internal/nativesig; h is retained only so test doubles can
	// simulate signal delivery by calling it on a goroutine.
	InstallSignalHandler(sig syscall.Signal, h SignalHandler) error
}
