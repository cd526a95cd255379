// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"runtime"
	"sync"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/internal/log"
	"gopkg.in/DataDog/go-wallclock.v1/internal/nativesig"
)

var (
	mu     sync.Mutex
	active *Sampler
)

// Start starts the process-wide wall-clock sampler, stopping and
// replacing any previously running one, mirroring
// gopkg.in/DataDog/dd-trace-go.v1/profiler.Start's activeProfiler swap.
func Start(opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	// Validate first, so a ConfigurationError leaves the active sampler
	// running.
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if active != nil {
		active.stop()
	}
	s, err := newSampler(opts...)
	if err != nil {
		return err
	}
	if err := s.start(); err != nil {
		return err
	}
	active = s
	return nil
}

// Stop stops the active sampler, if any.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		active.stop()
		active = nil
	}
}

// Pause disables sampling without tearing down the timer thread or
// releasing the installed signal handler, mirroring the original
// profiler's Engine::_enabled gate, distinct from Engine::_running.
func Pause() {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		active.loop.SetEnabled(false)
	}
}

// Resume re-enables sampling after Pause.
func Resume() {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		active.loop.SetEnabled(true)
	}
}

// Sampler is one running instance of the wall-clock sampling engine. It
// has no exported constructor or methods: callers outside this package
// drive the single process-wide instance through Start/Stop/Pause/Resume,
// while this package's tests construct and run Samplers directly.
type Sampler struct {
	cfg     *config
	loop    *TimerLoop
	walker  *StackWalker
	metrics *sampleMetrics

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newSampler(opts ...Option) (*Sampler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	metrics := newSampleMetrics(cfg)

	classifier := NewClassifier(cfg.frames, cfg.library)

	hsSlot := newHandshakeSlot(cfg.os)

	walker := &StackWalker{
		slot:       hsSlot,
		sampleIdle: cfg.sampleIdle,
		classifier: classifier,
		recorder:   cfg.recorder,
		intervalNS: cfg.interval.Nanoseconds(),
		onError:    logTransientError,
	}

	loop := &TimerLoop{
		os:         cfg.os,
		walker:     walker,
		filter:     cfg.filter,
		sampleSig:  cfg.sampleSig,
		interval:   cfg.interval,
		sampleIdle: cfg.sampleIdle,
		metrics:    metrics,
	}
	loop.SetEnabled(true)

	return &Sampler{cfg: cfg, loop: loop, walker: walker, metrics: metrics}, nil
}

func logTransientError(err error) {
	log.Error("wallclock-sample", "%v", err)
}

// start installs the sampling signal handler and spawns the timer
// thread, implementing the lifecycle described in §4.5.
func (s *Sampler) start() error {
	if err := s.cfg.os.InstallSignalHandler(s.cfg.sampleSig, s.simulatedHandler); err != nil {
		return &StartupFailureError{Cause: err}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		s.loop.Run()
	}()
	return nil
}

// stop signals the timer loop to exit and waits for it, per §4.5: set
// running = false, wake the timer thread, join it.
func (s *Sampler) stop() {
	s.stopOnce.Do(func() {
		s.loop.Stop(func() {
			if waker, ok := s.cfg.os.(interface{ WakeSleeper() }); ok {
				waker.WakeSleeper()
			}
		})
		s.wg.Wait()
		s.metrics.close()
	})
}

// simulatedHandler implements the handler side of the handshake for
// test-double and non-Linux OS facades, where there is no real signal
// context to run in: it drives the same internal/handshake.Slot the
// driver side is using. The real Linux facade never calls this; its
// signal handler is installed natively by internal/nativesig and talks
// to C globals directly.
func (s *Sampler) simulatedHandler(tid int64) {
	hs, ok := s.walker.slot.(*handshake.Slot)
	if !ok {
		return
	}
	if _, ok := hs.TryAcceptSignal(tid); !ok {
		return
	}
	var runtimeEnv uintptr
	if s.cfg.runtimeEnv != nil {
		runtimeEnv = s.cfg.runtimeEnv()
	}
	var pc uintptr
	if src, ok := s.cfg.os.(interface{ SimulatedPC(int64) uintptr }); ok {
		pc = src.SimulatedPC(tid)
	}
	// There is no real ucontext_t in a goroutine standing in for a
	// signal-interrupted thread, so the context address is a nonzero
	// sentinel: only its presence (not its contents) is meaningful off
	// the native capture path, since the test-double frame inspectors
	// never dereference it.
	hs.Publish(pc, 1, runtimeEnv)
	hs.WaitStackWalked()
}

// SetNativeRuntimeEnvAccessor registers the raw C function pointer the
// native capture handler calls, on the real Linux signal-delivery path,
// to obtain a per-thread managed-runtime handle. It has no effect on the
// goroutine-simulated OS facade, which instead uses the RuntimeEnvFunc
// passed to WithRuntimeEnvAccessor; a signal handler installed by
// sigaction cannot call back into the Go scheduler; see SPEC_FULL.md
// §4.7.
func SetNativeRuntimeEnvAccessor(fn nativesig.RuntimeEnvAccessor) {
	nativesig.SetRuntimeEnvAccessor(fn)
}
