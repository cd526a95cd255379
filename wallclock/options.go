// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/statsd"

	"gopkg.in/DataDog/go-wallclock.v1/internal/libraryoracle"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
	"gopkg.in/DataDog/go-wallclock.v1/internal/threadfilter"
)

// THREADS_PER_TICK / MIN_INTERVAL / HANDSHAKE_TIMEOUT from §3.
const (
	ThreadsPerTick    = 8
	MinInterval       = 100 * time.Microsecond
	HandshakeTimeout  = 10 * time.Millisecond
	defaultSampleSig  = syscall.SIGVTALRM
	defaultWakeupSig  = syscall.SIGURG
)

// StatsdClient counts and times sampler events, mirroring
// gopkg.in/DataDog/dd-trace-go.v1/profiler.StatsdClient.
type StatsdClient interface {
	Count(event string, times int64, tags []string, rate float64) error
	Timing(event string, duration time.Duration, tags []string, rate float64) error
}

type config struct {
	interval     time.Duration
	sampleIdle   bool
	sampleSig    syscall.Signal
	wakeupSig    syscall.Signal
	os           OS
	frames       StackFrameInspector
	library      LibraryOracle
	filter       ThreadFilter
	recorder     Recorder
	runtimeEnv   RuntimeEnvFunc
	statsd       StatsdClient
	prometheus   bool
}

// Option configures the sampler at construction time via Start.
type Option func(*config)

// WithArguments resolves interval and idle-sampling mode from Arguments
// per §6's Arguments contract.
func WithArguments(args Arguments) Option {
	return func(cfg *config) {
		cfg.interval = args.EffectiveInterval()
		cfg.sampleIdle = args.SampleIdle()
	}
}

// WithInterval overrides the sampling interval directly.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) { cfg.interval = d }
}

// WithSampleIdle overrides idle-sampling mode directly.
func WithSampleIdle(idle bool) Option {
	return func(cfg *config) { cfg.sampleIdle = idle }
}

// WithSignals overrides the sampling and wakeup signal numbers. The
// defaults are SIGVTALRM for sampling and SIGURG for wakeup (§9). The
// wakeup number is only recorded: Stop does not send it, and instead
// interrupts the timer thread's sleep through the OS facade's
// WakeSleeper method when the facade has one.
func WithSignals(sample, wakeup syscall.Signal) Option {
	return func(cfg *config) {
		cfg.sampleSig = sample
		cfg.wakeupSig = wakeup
	}
}

// WithOS overrides the OS facade, primarily for tests.
func WithOS(os OS) Option {
	return func(cfg *config) { cfg.os = os }
}

// WithStackFrameInspector overrides the stack-frame inspector.
func WithStackFrameInspector(f StackFrameInspector) Option {
	return func(cfg *config) { cfg.frames = f }
}

// WithLibraryOracle overrides the library-address oracle.
func WithLibraryOracle(l LibraryOracle) Option {
	return func(cfg *config) { cfg.library = l }
}

// WithThreadFilter restricts the candidate population.
func WithThreadFilter(f ThreadFilter) Option {
	return func(cfg *config) { cfg.filter = f }
}

// WithRecorder sets the sample sink. Required: Start returns a
// ConfigurationError if no recorder is configured.
func WithRecorder(r Recorder) Option {
	return func(cfg *config) { cfg.recorder = r }
}

// WithRuntimeEnvAccessor registers the function the goroutine-simulated
// signal handler calls to obtain the interrupted thread's managed-runtime
// handle. The native Linux handler does not call it; it uses the accessor
// registered with SetNativeRuntimeEnvAccessor.
func WithRuntimeEnvAccessor(fn RuntimeEnvFunc) Option {
	return func(cfg *config) { cfg.runtimeEnv = fn }
}

// WithStatsd reports per-iteration sample counts and iteration durations
// to client.
func WithStatsd(client StatsdClient) Option {
	return func(cfg *config) { cfg.statsd = client }
}

// WithPrometheus registers sample-count, iteration-count and
// iteration-duration metrics with the default
// Prometheus registry in addition to (or instead of) statsd.
func WithPrometheus(enabled bool) Option {
	return func(cfg *config) { cfg.prometheus = enabled }
}

func defaultConfig() *config {
	return &config{
		interval:   DefaultSamplingInterval,
		sampleIdle: false,
		sampleSig:  defaultSampleSig,
		wakeupSig:  defaultWakeupSig,
		os:         osthreads.NewLinuxFacade(),
		frames:     newDefaultFrameInspector(),
		library:    libraryoracle.NewPathFinder(),
		filter:     threadfilter.None{},
		statsd:     &statsd.NoOpClient{},
	}
}

func (c *config) validate() error {
	if c.interval <= 0 {
		return &ConfigurationError{Reason: "interval must be positive"}
	}
	if c.recorder == nil {
		return &ConfigurationError{Reason: "no recorder configured"}
	}
	if c.frames == nil {
		return &ConfigurationError{Reason: "no stack frame inspector configured"}
	}
	return nil
}
