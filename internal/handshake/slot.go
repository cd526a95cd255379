// Package handshake implements the single-slot, lock-free rendezvous used
// to exchange one captured machine context between a timer-driving
// goroutine and one signal-handler invocation.
//
// Slot is deliberately built only out of the primitive atomics in
// sync/atomic (never a mutex, never a channel) because the production
// counterpart of the "handler" side of this rendezvous runs inside a real
// OS signal handler (see internal/nativesig), where blocking primitives
// are not async-signal-safe. Slot itself never runs in signal context; it
// exists so the handshake protocol can be written once, tested with
// ordinary goroutines standing in for OS threads, and reasoned about
// independently of the cgo boundary.
package handshake

import (
	"sync/atomic"
	"time"
)

// noTarget is the sentinel target_tid meaning "no handshake is armed".
const noTarget = -1

// CapturedContext is the payload a handler publishes into a Slot. Ctx and
// RuntimeEnv are addresses of foreign, non-Go-owned memory (the ucontext_t
// the kernel handed the signal handler, and the runtime-environment handle
// returned by the registered accessor); Slot never dereferences them, it
// only carries them from the handler to the driver.
type CapturedContext struct {
	PC         uintptr
	Ctx        uintptr
	RuntimeEnv uintptr
}

// Slot is a process-wide singleton rendezvous. Only one arm phase is ever
// in flight: the five logical fields from the design (target_tid,
// context_ptr, handler_may_publish, context_ready, stack_walked) are
// stored as independent atomics, except handler_may_publish, which is
// packed together with a monotonic generation counter into a single
// atomic word so that a handler invocation belonging to an abandoned arm
// can never be confused for the current one (see Abandon).
type Slot struct {
	targetTID atomic.Int64
	// gate packs generation<<1 | canPublish. A handler CASes the whole
	// word, so it can only win if both the generation it observed and
	// the publish bit still match what the driver last armed.
	gate         atomic.Uint64
	contextAddr  atomic.Uintptr
	contextPC    atomic.Uintptr
	contextEnv   atomic.Uintptr
	contextReady atomic.Bool
	stackWalked  atomic.Bool
}

// New returns a disarmed Slot.
func New() *Slot {
	s := &Slot{}
	s.targetTID.Store(noTarget)
	return s
}

// Arm prepares the slot for a new handshake directed at tid and returns
// the generation a handler must win to be considered the current
// invocation. It must only be called by the driver, and only when no
// other handshake is in flight.
func (s *Slot) Arm(tid int64) uint64 {
	s.contextAddr.Store(0)
	s.contextPC.Store(0)
	s.contextEnv.Store(0)
	s.contextReady.Store(false)
	s.stackWalked.Store(false)
	s.targetTID.Store(tid)
	gen := (s.gate.Load() >> 1) + 1
	s.gate.Store(gen<<1 | 1)
	return gen
}

// TargetTID reports the tid the currently armed slot is directed at, or
// the sentinel if disarmed.
func (s *Slot) TargetTID() int64 { return s.targetTID.Load() }

// TryAcceptSignal is invoked by (a stand-in for) the signal handler on
// receipt of the sampling signal running on thread tid. It reports
// whether this invocation is the one and only one the driver is currently
// waiting on, per invariant 3: a handler observing a tid mismatch or a
// lost publish-gate CAS must return immediately without publishing.
func (s *Slot) TryAcceptSignal(tid int64) (generation uint64, ok bool) {
	if s.targetTID.Load() != tid {
		return 0, false
	}
	for {
		g := s.gate.Load()
		if g&1 == 0 {
			return 0, false
		}
		if s.gate.CompareAndSwap(g, g&^uint64(1)) {
			return g >> 1, true
		}
	}
}

// Publish stores the captured context and marks it ready. Callers must
// only call Publish after a successful TryAcceptSignal, and must publish
// the address before context_ready so a driver that observes
// context_ready true always sees a non-null context (invariant 2).
func (s *Slot) Publish(pc, ctx, runtimeEnv uintptr) {
	s.contextPC.Store(pc)
	s.contextEnv.Store(runtimeEnv)
	s.contextAddr.Store(ctx)
	s.contextReady.Store(true)
}

// WaitStackWalked busy-waits, with no timeout, until the driver has
// finished consuming the published context. Releasing the handler early
// would let its stack mutate underneath an in-progress unwind, so this
// loop has no escape hatch besides invariant 3's early-exit paths, which
// happen before Publish is ever called.
func (s *Slot) WaitStackWalked() {
	for !s.stackWalked.Load() {
	}
}

// WaitContextReady busy-waits up to timeout for a handler to publish. It
// reports whether publication happened before the deadline.
func (s *Slot) WaitContextReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !s.contextReady.Load() {
		if time.Now().After(deadline) {
			return false
		}
	}
	return true
}

// CapturedContext returns the most recently published context. Calling it
// before WaitContextReady reports true is meaningless.
func (s *Slot) CapturedContext() CapturedContext {
	return CapturedContext{
		PC:         s.contextPC.Load(),
		Ctx:        s.contextAddr.Load(),
		RuntimeEnv: s.contextEnv.Load(),
	}
}

// Release unblocks a parked handler by marking the context consumed. It
// is the driver's job to call this exactly once per successful handshake,
// after it is done reading CapturedContext.
func (s *Slot) Release() {
	s.stackWalked.Store(true)
}

// Abandon is called by the driver after a WaitContextReady timeout. It
// disarms the target so any handler invocation still racing against the
// old generation fails its TryAcceptSignal CAS, and defensively releases
// the slot in case a handler had already won that CAS moments earlier but
// had not yet published: without this, such a handler would go on to
// publish into a slot the driver no longer owns and then spin forever in
// WaitStackWalked, since nothing would ever call Release for it again.
func (s *Slot) Abandon() {
	s.targetTID.Store(noTarget)
	for {
		g := s.gate.Load()
		gen := g >> 1
		if s.gate.CompareAndSwap(g, (gen+1)<<1) {
			break
		}
	}
	s.stackWalked.Store(true)
}
