// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import "gopkg.in/DataDog/go-wallclock.v1/internal/handshake"

// SyscallSize is the byte length of the platform's syscall instruction.
// On linux/amd64 the syscall instruction (0f 05) is 2 bytes; other
// platforms that wire in a StackFrameInspector should use their own
// architecture's length.
const SyscallSize = 2

// Classifier decides whether an interrupted thread was executing or
// blocked inside a system call, following WallClock::getThreadState from
// the original profiler: a thread interrupted on the syscall instruction,
// or one whose PC has just advanced past a syscall that returned EINTR,
// is SLEEPING; everything else is RUNNING.
type Classifier struct {
	Frames  StackFrameInspector
	Library LibraryOracle
}

// NewClassifier constructs a Classifier from its two collaborators.
func NewClassifier(frames StackFrameInspector, library LibraryOracle) *Classifier {
	return &Classifier{Frames: frames, Library: library}
}

// Classify implements classify(pc) -> {RUNNING, SLEEPING} from §4.1.
// sample_idle gates whether this is ever called; StateUnknown is never
// returned here, only by the caller when sample_idle is false.
func (c *Classifier) Classify(ctx handshake.CapturedContext) ThreadState {
	pc := c.Frames.PC(ctx)

	if c.Frames.IsSyscall(pc) {
		return StateSleeping
	}

	prevPC := pc - SyscallSize
	pageOffset := pc & 0xfff
	canReadPrev := pageOffset >= SyscallSize
	if !canReadPrev && c.Library != nil {
		if _, ok := c.Library.Find(prevPC); ok {
			canReadPrev = true
		}
	}
	if canReadPrev && c.Frames.IsSyscall(prevPC) && c.Frames.CheckInterruptedSyscall(ctx) {
		return StateSleeping
	}

	return StateRunning
}
