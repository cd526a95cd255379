package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebugRespectsLevel(t *testing.T) {
	rl := &RecordLogger{}
	defer UseLogger(rl)()

	SetLevel(LevelWarn)
	Debug("hidden %d", 1)
	assert.Empty(t, rl.Logs())

	SetLevel(LevelDebug)
	Debug("shown %d", 1)
	assert.Len(t, rl.Logs(), 1)
	assert.Contains(t, rl.Logs()[0], "shown 1")

	SetLevel(LevelWarn)
}

func TestWarnAlwaysPrints(t *testing.T) {
	rl := &RecordLogger{}
	defer UseLogger(rl)()

	Warn("careful: %s", "reason")
	assert.Len(t, rl.Logs(), 1)
	assert.Contains(t, rl.Logs()[0], "WARN")
	assert.Contains(t, rl.Logs()[0], "careful: reason")
}

func TestErrorAggregatesUntilFlush(t *testing.T) {
	rl := &RecordLogger{}
	defer UseLogger(rl)()

	errrate = time.Hour // avoid the background timer racing this test
	defer func() { errrate = time.Minute }()

	Error("k", "boom %d", 1)
	Error("k", "boom %d", 2)
	assert.Empty(t, rl.Logs(), "aggregated errors are not printed until Flush")

	Flush()
	require := assert.New(t)
	require.Len(rl.Logs(), 1)
	require.Contains(rl.Logs()[0], "ERROR")
	require.Contains(rl.Logs()[0], "1 additional messages skipped")
}

func TestRecordLoggerReset(t *testing.T) {
	rl := &RecordLogger{}
	rl.Log("one")
	assert.Len(t, rl.Logs(), 1)
	rl.Reset()
	assert.Empty(t, rl.Logs())
}
