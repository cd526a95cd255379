// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

// Package wallclock implements a wall-clock sampling engine for a
// managed-runtime profiler: it periodically interrupts a population of
// live OS threads via a signal-mediated handshake, captures each
// interrupted thread's machine context, classifies it as running or
// blocked inside a system call, and hands the result to a caller-supplied
// Recorder.
//
// The engine itself never symbolizes frames, never persists samples, and
// never talks to any particular managed runtime directly; those concerns
// live behind the interfaces in this file, mirroring how
// gopkg.in/DataDog/dd-trace-go.v1/profiler treats its uploader and statsd
// client as pluggable collaborators.
package wallclock

import (
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
)

// ThreadState is the OS-observed or classified run state of a sampled
// thread at the moment it was interrupted.
type ThreadState int

const (
	// StateUnknown is recorded when sample_idle is false: only
	// OS-reported running threads are ever sampled, so classification
	// would be redundant.
	StateUnknown ThreadState = iota
	StateRunning
	StateSleeping
)

func (s ThreadState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// EventKind identifies the kind of sample handed to a Recorder. The
// engine only ever produces ExecutionSample; the type exists so a
// Recorder shared with other sampling engines can dispatch on it.
type EventKind int

const (
	ExecutionSample EventKind = iota
)

// ExecutionEvent is handed to the Recorder alongside a captured context.
type ExecutionEvent struct {
	ThreadState ThreadState
}

// OS is the operating-system facade the engine is built against:
// monotonic time, sleep, thread identity, thread enumeration and state,
// and per-thread signal delivery. internal/osthreads implements this on
// Linux; internal/osthreads/osthreadstest implements an in-memory double
// for tests.
type OS = osthreads.Facade

// ThreadList is a stateful cursor over the candidate thread population.
type ThreadList = osthreads.ThreadList

// RuntimeEnvFunc returns the calling thread's managed-runtime environment
// handle (e.g. a JNIEnv pointer), or 0 if none is attached. It must be
// safe to call from signal context: no allocation, no locking.
type RuntimeEnvFunc func() uintptr

// LibraryOracle answers whether an address falls inside a mapped
// executable region, gating the classifier's reads of adjacent
// instructions the way internal/libraryoracle.PathFinder (backed by an
// Oracle) does.
type LibraryOracle interface {
	Find(addr uintptr) (lib string, ok bool)
}

// StackFrameInspector decides, from a raw captured context, whether the
// interrupted instruction (or the one before it) is a syscall and, if
// so, whether the frame is consistent with an interrupted syscall
// returning EINTR. This package's built-in inspectors (frame_linux.go,
// which reads registers through internal/nativesig, and frame_other.go)
// and the test doubles satisfy this.
type StackFrameInspector interface {
	PC(ctx handshake.CapturedContext) uintptr
	IsSyscall(pc uintptr) bool
	CheckInterruptedSyscall(ctx handshake.CapturedContext) bool
}

// Recorder consumes one captured sample. It must not retain ctx beyond
// the call and must not block indefinitely; the driver thread is waiting
// on it before it can release the target thread.
type Recorder interface {
	RecordSample(ctx handshake.CapturedContext, intervalNS int64, kind EventKind, event ExecutionEvent, runtimeEnv uintptr) (sampleID uint64, err error)
}

// ThreadFilter restricts the candidate population, matching
// internal/threadfilter.Filter.
type ThreadFilter interface {
	Enabled() bool
	Size() int
	Accept(tid int64) bool
}

// Arguments resolves the effective sampling interval and idle-sampling
// mode the way the original profiler's CLI argument parser does.
type Arguments struct {
	// WallInterval is the value of an explicit "wall" event interval
	// argument, or -1 if not set.
	WallInterval time.Duration
	// DefaultInterval is a fallback interval shared across sampling
	// engines, or 0 if not set.
	DefaultInterval time.Duration
	// EventName is the requested event name, e.g. "wall" or "cpu".
	EventName string
}

// DefaultSamplingInterval is used when neither WallInterval nor
// DefaultInterval resolve to a usable value.
const DefaultSamplingInterval = 10 * time.Millisecond

// EffectiveInterval implements the resolution rule from the interfaces
// section, mirroring WallClock::start's two-step C++ logic literally:
// pick wall if set non-negative, else default_interval; only then, if
// that single chosen value is zero, fall back to 5x DEFAULT for
// idle-sampling or DEFAULT otherwise. default_interval is never
// consulted a second time once wall was the branch taken.
func (a Arguments) EffectiveInterval() time.Duration {
	interval := a.DefaultInterval
	if a.WallInterval >= 0 {
		interval = a.WallInterval
	}
	if interval != 0 {
		return interval
	}
	if a.SampleIdle() {
		return 5 * DefaultSamplingInterval
	}
	return DefaultSamplingInterval
}

// SampleIdle reports whether idle-sampling mode is requested: wall >= 0
// or the event name is explicitly "wall".
func (a Arguments) SampleIdle() bool {
	return a.WallInterval >= 0 || a.EventName == "wall"
}
