// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"sync/atomic"
	"syscall"
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
)

// TimerLoop is the dedicated OS thread that paces sampling iterations,
// enumerates candidate threads, and drives StackWalker, implementing the
// pseudocode from §4.4. It must run on a locked OS thread (see
// (*Sampler).start) so its own tid is stable and OS.ThreadID reports it
// correctly.
type TimerLoop struct {
	os         OS
	walker     *StackWalker
	filter     ThreadFilter
	sampleSig  syscall.Signal
	interval   time.Duration
	sampleIdle bool
	metrics    *sampleMetrics

	enabled atomic.Bool
	running atomic.Bool
	selfTID int64

	// list is the one ThreadList this loop owns for its entire run. Its
	// cursor is carried across iterations (never re-fetched mid-lap) so
	// the per-iteration THREADS_PER_TICK cap gives every thread an equal
	// long-run share instead of always favoring the front of the
	// population; see the ThreadList doc comment. It is only replaced
	// with a fresh snapshot once a lap completes (Next reports
	// exhaustion), which is also the point at which a changed thread
	// population is picked up.
	list ThreadList
}

// Run executes the loop body until Stop is called. It is meant to be
// called on its own goroutine, already pinned with runtime.LockOSThread
// by the caller.
func (t *TimerLoop) Run() {
	t.selfTID = t.os.ThreadID()
	t.running.Store(true)
	nextCycle := t.os.NowNS()

	for t.running.Load() {
		if !t.enabled.Load() {
			t.os.Sleep(t.interval)
			continue
		}

		iterStart := t.os.NowNS()

		if t.sampleIdle {
			est := t.candidateEstimate()
			nextCycle += adjustInterval(t.interval, est).Nanoseconds()
		}

		count := t.visitThreads()

		if t.metrics != nil {
			t.metrics.observeIteration(count, time.Duration(t.os.NowNS()-iterStart))
		}

		if t.sampleIdle {
			slack := time.Duration(nextCycle - t.os.NowNS())
			if slack > MinInterval {
				t.os.Sleep(slack)
			} else {
				nextCycle = t.os.NowNS() + MinInterval.Nanoseconds()
				t.os.Sleep(MinInterval)
			}
		} else {
			t.os.Sleep(t.interval)
		}
	}
}

func (t *TimerLoop) candidateEstimate() int {
	if t.filter != nil && t.filter.Enabled() {
		return t.filter.Size()
	}
	if err := t.ensureList(); err != nil {
		return 0
	}
	return t.list.Size()
}

// ensureList lazily fetches t.list the first time it's needed, leaving
// an existing list (and its cursor) untouched.
func (t *TimerLoop) ensureList() error {
	if t.list != nil {
		return nil
	}
	list, err := t.os.ListThreads()
	if err != nil {
		return err
	}
	t.list = list
	return nil
}

// visitThreads walks at most ThreadsPerTick candidates from the cursor
// thread list, following the inner loop of §4.4, including the break on
// cursor wraparound; at wraparound the list is re-fetched, and rewound
// only if that fails (see refreshOrRewindList). The list itself, and its
// cursor, is carried across calls (and across outer-loop iterations) on
// t.list: only a completed lap triggers a fresh snapshot from the OS.
func (t *TimerLoop) visitThreads() int {
	if err := t.ensureList(); err != nil {
		return 0
	}

	count := 0
	for count < ThreadsPerTick {
		tid, ok := t.list.Next()
		if !ok {
			t.refreshOrRewindList()
			break
		}
		if tid == t.selfTID {
			continue
		}
		if t.filter != nil && t.filter.Enabled() && !t.filter.Accept(tid) {
			continue
		}
		if !t.sampleIdle && t.os.ThreadState(tid) != osthreads.Running {
			continue
		}
		if t.walker.WalkStack(tid, func(target int64) bool {
			return t.os.SendSignal(target, t.sampleSig)
		}) {
			count++
		}
	}
	return count
}

// refreshOrRewindList is called once a lap over t.list completes. It
// re-fetches the population from the OS so a lap boundary also picks up
// threads that have appeared or disappeared since the last lap; if the
// OS can't currently be asked, it falls back to rewinding the existing
// snapshot so the loop keeps making progress.
func (t *TimerLoop) refreshOrRewindList() {
	if list, err := t.os.ListThreads(); err == nil {
		t.list = list
		return
	}
	t.list.Rewind()
}

// Stop asks the loop to exit at its next iteration head and interrupts a
// pending sleep so shutdown is not delayed by up to a full interval.
func (t *TimerLoop) Stop(wake func()) {
	t.running.Store(false)
	if wake != nil {
		wake()
	}
}

func (t *TimerLoop) SetEnabled(v bool) { t.enabled.Store(v) }

func (t *TimerLoop) Enabled() bool { return t.enabled.Load() }

// adjustInterval implements adjust_interval(interval, n) from §4.4: keeps
// per-thread cadence roughly constant as the population grows past
// ThreadsPerTick.
func adjustInterval(interval time.Duration, n int) time.Duration {
	if n <= ThreadsPerTick {
		return interval
	}
	ticks := (n + ThreadsPerTick - 1) / ThreadsPerTick
	return interval / time.Duration(ticks)
}
