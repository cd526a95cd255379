package wallclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads/osthreadstest"
)

func TestStartStopRoundTripWithZeroSamples(t *testing.T) {
	fake := osthreadstest.New(0)
	rec := &countingRecorder{}
	err := Start(WithOS(fake), WithRecorder(rec), WithStackFrameInspector(&fakeFrames{}))
	require.NoError(t, err)
	Stop()

	err = Start(WithOS(fake), WithRecorder(rec), WithStackFrameInspector(&fakeFrames{}))
	require.NoError(t, err)
	Stop()
}

func TestStartRejectsMissingRecorder(t *testing.T) {
	err := Start(WithOS(osthreadstest.New(0)), WithStackFrameInspector(&fakeFrames{}))
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStartReplacesPreviousSampler(t *testing.T) {
	fake1 := osthreadstest.New(0)
	fake1.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Running}})
	rec1 := &countingRecorder{}
	require.NoError(t, Start(WithOS(fake1), WithRecorder(rec1), WithStackFrameInspector(&fakeFrames{}), WithInterval(5*time.Millisecond)))
	defer Stop()

	fake2 := osthreadstest.New(0)
	rec2 := &countingRecorder{}
	require.NoError(t, Start(WithOS(fake2), WithRecorder(rec2), WithStackFrameInspector(&fakeFrames{}), WithInterval(5*time.Millisecond)))

	time.Sleep(50 * time.Millisecond)
	countAfterReplace := rec1.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, countAfterReplace, rec1.count(), "the replaced sampler must have stopped producing samples")
}

func TestPauseStopsSamplingWithoutTearingDownTheLoop(t *testing.T) {
	fake := osthreadstest.New(0)
	fake.SetThreads([]osthreadstest.FakeThread{{TID: 1, State: osthreads.Running}})
	rec := &countingRecorder{}
	require.NoError(t, Start(WithOS(fake), WithRecorder(rec), WithStackFrameInspector(&fakeFrames{}), WithInterval(5*time.Millisecond)))
	defer Stop()

	time.Sleep(50 * time.Millisecond)
	Pause()
	afterPause := rec.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, afterPause, rec.count())

	Resume()
	time.Sleep(50 * time.Millisecond)
	assert.Greater(t, rec.count(), afterPause)
}
