package wallclock

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads/osthreadstest"
)

// countingRecorder is safe for concurrent use by the timer loop
// goroutine and the test goroutine reading its counters.
type countingRecorder struct {
	mu     sync.Mutex
	events []ExecutionEvent
}

func (r *countingRecorder) RecordSample(_ handshake.CapturedContext, _ int64, _ EventKind, event ExecutionEvent, _ uintptr) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return uint64(len(r.events)), nil
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *countingRecorder) countWhere(pred func(ExecutionEvent) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if pred(e) {
			n++
		}
	}
	return n
}

func newTestSampler(t *testing.T, fake *osthreadstest.Fake, rec Recorder, opts ...Option) *Sampler {
	t.Helper()
	base := []Option{
		WithOS(fake),
		WithRecorder(rec),
		WithStackFrameInspector(&fakeFrames{}),
	}
	s, err := newSampler(append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, s.start())
	t.Cleanup(s.stop)
	return s
}

// scenario 1: single running target, sample_idle=false.
func TestScenarioSingleRunningTarget(t *testing.T) {
	fake := osthreadstest.New(0)
	fake.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Running}})
	rec := &countingRecorder{}

	newTestSampler(t, fake, rec, WithInterval(10*time.Millisecond), WithSampleIdle(false))

	time.Sleep(200 * time.Millisecond)
	assert.Greater(t, rec.count(), 5)
	assert.Equal(t, rec.count(), rec.countWhere(func(e ExecutionEvent) bool { return e.ThreadState == StateUnknown }))
}

// scenario 2: single target parked in a syscall, sample_idle=true.
func TestScenarioSingleSyscallTarget(t *testing.T) {
	fake := osthreadstest.New(0)
	fake.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Sleeping, PC: 0x9000}})
	rec := &countingRecorder{}

	frames := &fakeFrames{pc: 0x9000, syscallAddrs: map[uintptr]bool{0x9000: true}}
	newTestSampler(t, fake, rec, WithInterval(10*time.Millisecond), WithSampleIdle(true), WithStackFrameInspector(frames))

	time.Sleep(200 * time.Millisecond)
	require.Greater(t, rec.count(), 5)
	sleeping := rec.countWhere(func(e ExecutionEvent) bool { return e.ThreadState == StateSleeping })
	assert.GreaterOrEqual(t, float64(sleeping)/float64(rec.count()), 0.95)
}

// scenario 3: population scaling adjusts the effective interval.
func TestScenarioPopulationScalingAdjustsInterval(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, adjustInterval(10*time.Millisecond, 8))
	assert.Equal(t, 1250*time.Microsecond, adjustInterval(10*time.Millisecond, 64))
	assert.Equal(t, 5*time.Millisecond, adjustInterval(10*time.Millisecond, 9))
}

// scenario 4: target disappears between selection and signal.
func TestScenarioDisappearingThread(t *testing.T) {
	fake := osthreadstest.New(0)
	fake.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Running}})
	fake.DropSignalsTo(1)
	rec := &countingRecorder{}

	newTestSampler(t, fake, rec, WithInterval(10*time.Millisecond), WithSampleIdle(false))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

// scenario 5: handler delayed past HandshakeTimeout; the driver
// abandons and later iterations still succeed.
func TestScenarioHandlerTimeoutThenRecovers(t *testing.T) {
	fake := osthreadstest.New(0)
	fake.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Running}})
	fake.DelayHandlerFor(1, HandshakeTimeout*3)
	rec := &countingRecorder{}

	newTestSampler(t, fake, rec, WithInterval(5*time.Millisecond), WithSampleIdle(false))

	time.Sleep(HandshakeTimeout * 6)
	fake.DelayHandlerFor(1, 0)
	time.Sleep(200 * time.Millisecond)
	assert.Greater(t, rec.count(), 0)
}

// scenario 6: an enabled filter restricts the candidate population.
func TestScenarioThreadFilterRestrictsPopulation(t *testing.T) {
	fake := osthreadstest.New(0)
	threads := make([]osthreadstest.FakeThread, 0, 10)
	for tid := int64(1); tid <= 10; tid++ {
		threads = append(threads, osthreadstest.FakeThread{TID: tid, State: osthreads.Running, PC: uintptr(tid)})
	}
	fake.SetThreads(threads)

	filter := evenOnlyFilter{}
	rec := &recordingTIDRecorder{}
	sampler := newTestSampler(t, fake, rec, WithInterval(5*time.Millisecond), WithSampleIdle(false), WithThreadFilter(filter))
	_ = sampler

	time.Sleep(300 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.tids)
	for tid := range rec.tids {
		assert.Zero(t, tid%2, "odd tid %d must never be sampled under an even-only filter", tid)
	}
}

// property 5: fair visitation. With N=100 candidates and
// THREADS_PER_TICK=8, TimerLoop must carry one cursor across outer-loop
// iterations (rather than re-fetching a fresh, zero-cursor ThreadList
// every time) so every eligible thread gets an equal long-run share
// instead of the front of the list being sampled exclusively.
func TestPropertyFairVisitationAcrossLaps(t *testing.T) {
	fake := osthreadstest.New(0)
	const n = 100
	threads := make([]osthreadstest.FakeThread, 0, n)
	for tid := int64(1); tid <= n; tid++ {
		threads = append(threads, osthreadstest.FakeThread{TID: tid, State: osthreads.Running, PC: uintptr(tid)})
	}
	fake.SetThreads(threads)

	rec := &recordingTIDRecorder{}
	newTestSampler(t, fake, rec, WithInterval(2*time.Millisecond), WithSampleIdle(false))

	time.Sleep(500 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.tids, n, "every eligible thread must be visited at least once across enough laps")

	total := 0
	for _, c := range rec.tids {
		total += c
	}
	mean := float64(total) / float64(n)

	for tid, c := range rec.tids {
		assert.InDelta(t, mean, float64(c), 1.0, "tid %d sampled %d times, mean %.1f", tid, c, mean)
	}
}

type evenOnlyFilter struct{}

func (evenOnlyFilter) Enabled() bool       { return true }
func (evenOnlyFilter) Size() int           { return 5 }
func (evenOnlyFilter) Accept(tid int64) bool { return tid%2 == 0 }

type recordingTIDRecorder struct {
	mu   sync.Mutex
	tids map[int64]int
}

func (r *recordingTIDRecorder) RecordSample(ctx handshake.CapturedContext, _ int64, _ EventKind, _ ExecutionEvent, _ uintptr) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tids == nil {
		r.tids = map[int64]int{}
	}
	// The test seeds each FakeThread's PC with its own tid, so the
	// captured PC doubles as a stand-in for "which tid was sampled".
	r.tids[int64(ctx.PC)]++
	return 1, nil
}

// TestSyscallSignalDefaultIsDistinctFromWakeup documents the wakeup/sample signal
// split called for in §9: a distinct signal disambiguates stopping the
// timer thread from sampling one.
func TestSyscallSignalDefaultIsDistinctFromWakeup(t *testing.T) {
	cfg := defaultConfig()
	assert.NotEqual(t, cfg.sampleSig, cfg.wakeupSig)
	assert.Equal(t, syscall.SIGVTALRM, cfg.sampleSig)
}
