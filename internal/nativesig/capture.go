// Package nativesig installs the async-signal-safe handler that captures a
// target thread's machine context in response to a per-thread signal. It is
// the direct Go/cgo analogue of the original profiler's
// WallClock::signalHandler: a real POSIX signal handler cannot allocate, take
// a lock, or call back into a managed runtime, so the handler side of the
// handshake is implemented entirely in C and only ever touches the same
// primitive atomics internal/handshake.Slot is built from.
//
// Every platform this package supports ships two files: a
// capture_<goos>.go implementation and (on the platforms that need one) a
// matching .c shim installed via sigaction(2). Platforms without a native
// implementation get capture_other.go, which reports ErrUnsupported.
package nativesig

import (
	"errors"
	"syscall"
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
)

// ErrUnsupported is returned by Install on platforms with no native
// capture handler.
var ErrUnsupported = errors.New("nativesig: no native signal capture handler on this platform")

// RuntimeEnvAccessor is a raw C function pointer, registered once at
// startup, that the signal handler calls to obtain a per-thread pointer
// into the host managed runtime (e.g. a JNIEnv*) to hand to the recorder
// alongside the captured machine context. It is modeled as an opaque
// address rather than a Go func value because C code installed by
// sigaction cannot call back into the Go scheduler; see SPEC_FULL.md
// §4.7.
type RuntimeEnvAccessor uintptr

// Handshake covers the Arm/TargetTID subset of internal/handshake.Slot's
// method set. The driver does not use it; it drives the native slot
// through Slot below, which has the full method set.
type Handshake interface {
	Arm(tid int64) uint64
	TargetTID() int64
}

// Install arms the process-wide native signal handler for sig. It is
// idempotent for a given signal number: calling it twice with the same
// signal replaces the previously registered handler.
func Install(sig syscall.Signal) error {
	return install(sig)
}

// SetRuntimeEnvAccessor registers the accessor the native handler calls
// while capturing context, or clears it if fn is 0.
func SetRuntimeEnvAccessor(fn RuntimeEnvAccessor) {
	setRuntimeEnvAccessor(fn)
}

// Slot adapts the package-level native slot (a process-wide singleton
// backed by C globals, since a real signal handler cannot be passed a
// receiver) to the same method set internal/handshake.Slot exposes, so
// wallclock's driver code can be written once against either.
type Slot struct{}

func (Slot) Arm(tid int64) uint64 { return Arm(tid) }

func (Slot) TargetTID() int64 { return TargetTID() }

func (Slot) WaitContextReady(timeout time.Duration) bool { return WaitContextReady(timeout) }

func (Slot) CapturedContext() handshake.CapturedContext { return CapturedContext() }

func (Slot) Release() { Release() }

func (Slot) Abandon() { Abandon() }
