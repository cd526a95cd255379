// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
)

// slot is the handshake driver side StackWalker talks to. internal/handshake.Slot
// satisfies it directly for the test-double OS path; nativesig.Slot
// satisfies it for the real Linux signal-capture path. Keeping this as an
// unexported interface, rather than hard-coding *handshake.Slot, is what
// lets the same StackWalker/TimerLoop code drive either a simulated
// handler or the real cgo one.
type slot interface {
	Arm(tid int64) uint64
	TargetTID() int64
	WaitContextReady(timeout time.Duration) bool
	CapturedContext() handshake.CapturedContext
	Release()
	Abandon()
}

// StackWalker is the driver side of the handshake: it arms the slot,
// signals the target, waits for the published context, hands it to the
// classifier and recorder, then releases the target. It implements
// walk_stack(tid) from §4.3.
type StackWalker struct {
	slot       slot
	sampleIdle bool
	classifier *Classifier
	recorder   Recorder
	intervalNS int64
	onError    func(error)
}

// WalkStack drives one complete handshake for tid, returning true if a
// sample was recorded. It never blocks longer than HandshakeTimeout
// waiting for the handler to publish; once published, it waits
// indefinitely for the (out-of-band) recorder call to complete, exactly
// as an unbounded handler-side spin would in the original design, since
// releasing early would let the handler resume over a stack still being
// read.
func (w *StackWalker) WalkStack(tid int64, sendSignal func(int64) bool) bool {
	w.slot.Arm(tid)

	if !sendSignal(tid) {
		w.slot.Abandon()
		w.reportError(&TransientPerSampleError{TID: tid})
		return false
	}

	if !w.slot.WaitContextReady(HandshakeTimeout) {
		// Timeout: abandon invalidates the generation stamped by Arm so
		// a handler that wins the CAS after this point still cannot
		// publish into a slot the driver has stopped reading, and
		// forces stack_walked defensively in case one already has.
		w.slot.Abandon()
		w.reportError(&TransientPerSampleError{TID: tid})
		return false
	}

	ctx := w.slot.CapturedContext()

	event := ExecutionEvent{ThreadState: StateUnknown}
	if w.sampleIdle {
		event.ThreadState = w.classifier.Classify(ctx)
	}

	if w.recorder != nil {
		if _, err := w.recorder.RecordSample(ctx, w.intervalNS, ExecutionSample, event, ctx.RuntimeEnv); err != nil {
			w.reportError(&TransientPerSampleError{TID: tid, Cause: err})
		}
	}

	w.slot.Release()
	return true
}

func (w *StackWalker) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
