// Package osthreadstest provides an in-memory osthreads.Facade double so
// the sampling engine's tests can exercise TimerLoop, StackWalker, and
// the classifier without a real kernel or real signal delivery, following
// the same monkey-patched-collaborator style
// gopkg.in/DataDog/dd-trace-go.v1/profiler's tests use (unstartedProfiler,
// package-var overrides of startCPUProfile/lookupProfile).
package osthreadstest

import (
	"sync"
	"syscall"
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
)

// FakeThread is one simulated OS thread.
type FakeThread struct {
	TID   int64
	State osthreads.ThreadState
	// PC is the program counter the simulated signal handler publishes
	// for this thread, standing in for a real ucontext_t's captured
	// instruction pointer.
	PC uintptr
}

// Fake is a fully in-memory Facade. Signals "delivered" to a thread
// invoke the installed handler asynchronously, on a new goroutine
// standing in for that thread's signal context (SendSignal returns
// without waiting for it), which is how this module
// tests the handshake protocol end to end without a real kernel.
type Fake struct {
	mu      sync.Mutex
	self    int64
	threads []FakeThread
	cursor  int
	handler osthreads.SignalHandler
	sig     syscall.Signal

	now      int64
	sleeps   []time.Duration
	dropSend map[int64]bool
	delay    map[int64]time.Duration
	wake     chan struct{}

	tidLocks map[int64]*sync.Mutex
}

// New returns a Fake with self as the calling ("timer") thread's tid.
func New(self int64) *Fake {
	return &Fake{
		self:     self,
		dropSend: map[int64]bool{},
		delay:    map[int64]time.Duration{},
		wake:     make(chan struct{}, 1),
		tidLocks: map[int64]*sync.Mutex{},
	}
}

// SetThreads replaces the candidate population.
func (f *Fake) SetThreads(threads []FakeThread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append([]FakeThread(nil), threads...)
	f.cursor = 0
}

// DropSignalsTo makes SendSignal report failure for tid, simulating a
// thread that has exited between selection and delivery (scenario 4).
func (f *Fake) DropSignalsTo(tid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropSend[tid] = true
}

// DelayHandlerFor makes the simulated handler invocation for tid sleep
// before running, simulating scenario 5 (handler timeout).
func (f *Fake) DelayHandlerFor(tid int64, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[tid] = d
}

func (f *Fake) NowNS() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now++
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-f.wake:
	}
}

// WakeSleeper interrupts a pending Sleep, matching
// osthreads.LinuxFacade.WakeSleeper so Sampler.stop's shutdown path
// exercises the same interface on the test double.
func (f *Fake) WakeSleeper() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Sleeps returns every duration Sleep was called with, for asserting on
// cadence (property 4).
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

func (f *Fake) ThreadID() int64 { return f.self }

func (f *Fake) ListThreads() (osthreads.ThreadList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tids := make([]int64, len(f.threads))
	for i, th := range f.threads {
		tids[i] = th.TID
	}
	return &fakeList{tids: tids}, nil
}

func (f *Fake) ThreadState(tid int64) osthreads.ThreadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, th := range f.threads {
		if th.TID == tid {
			return th.State
		}
	}
	return osthreads.Unknown
}

// SendSignal schedules one handler invocation for tid. Real kernels
// never run two instances of the same signal's handler on one thread
// concurrently — the signal stays blocked on that thread for the
// duration of its own handler — so invocations for the same tid are
// serialized through a per-tid lock rather than allowed to race freely.
// A slow (delayed) handler therefore postpones, rather than duplicates
// with, the next one.
func (f *Fake) SendSignal(tid int64, sig syscall.Signal) bool {
	f.mu.Lock()
	drop := f.dropSend[tid]
	delay := f.delay[tid]
	handler := f.handler
	lock, ok := f.tidLocks[tid]
	if !ok {
		lock = &sync.Mutex{}
		f.tidLocks[tid] = lock
	}
	f.mu.Unlock()
	if drop {
		return false
	}
	if handler == nil {
		return false
	}
	go func() {
		lock.Lock()
		defer lock.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		handler(tid)
	}()
	return true
}

// SimulatedPC returns the PC configured for tid via SetThreads, letting
// wallclock's goroutine-simulated handler publish a realistic-looking
// captured context for the classifier to inspect.
func (f *Fake) SimulatedPC(tid int64) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, th := range f.threads {
		if th.TID == tid {
			return th.PC
		}
	}
	return 0
}

func (f *Fake) InstallSignalHandler(sig syscall.Signal, h osthreads.SignalHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sig = sig
	f.handler = h
	return nil
}

type fakeList struct {
	tids   []int64
	cursor int
}

func (l *fakeList) Next() (int64, bool) {
	if l.cursor >= len(l.tids) {
		return 0, false
	}
	tid := l.tids[l.cursor]
	l.cursor++
	return tid, true
}

func (l *fakeList) Rewind() { l.cursor = 0 }
func (l *fakeList) Size() int { return len(l.tids) }
