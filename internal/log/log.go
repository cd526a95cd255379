// Package log provides logging utilities for the wall-clock sampling
// engine, modeled on gopkg.in/DataDog/dd-trace-go.v1/internal/log but
// backed by a real structured logger (github.com/sirupsen/logrus) instead
// of the bare standard library logger, matching how the teacher's own
// native-profiler command wires logrus for its process-level logging.
package log

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level specifies the logging level the package prints at.
type Level int

const (
	// LevelDebug represents debug level messages.
	LevelDebug Level = iota
	// LevelWarn represents warning and error level messages.
	LevelWarn
)

// Logger is the minimal sink this package writes to. Anything satisfying
// it, including *testing.T-backed adapters, can be installed with
// UseLogger.
type Logger interface {
	Log(msg string)
}

var prefixMsg = "go-wallclock"

var (
	mu     sync.RWMutex
	level                = LevelWarn
	logger Logger        = &logrusLogger{l: defaultLogrus()}
)

func defaultLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

type logrusLogger struct{ l *logrus.Logger }

func (p *logrusLogger) Log(msg string) { p.l.Print(msg) }

// UseLogger sets l as the active logger and returns a function that
// restores the previous one, so tests can `defer log.UseLogger(rl)()`.
func UseLogger(l Logger) func() {
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = old
		mu.Unlock()
	}
}

// SetLevel sets the given lvl for logging.
func SetLevel(lvl Level) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
}

// Debug prints the given message if the level is LevelDebug. The sampling
// engine's hot path (the timer loop, and anything reachable from a signal
// handler) must never call this: it is for the driver's boundary code
// only (Start, Stop, configuration resolution).
func Debug(format string, a ...interface{}) {
	mu.RLock()
	lvl := level
	mu.RUnlock()
	if lvl != LevelDebug {
		return
	}
	printMsg("DEBUG", format, a...)
}

// Warn prints a warning message.
func Warn(format string, a ...interface{}) {
	printMsg("WARN", format, a...)
}

var (
	errmu   sync.RWMutex
	erragg  = map[string]*errorReport{}
	errrate time.Duration
	erron   bool
)

func init() {
	errrate = time.Minute
	if v, ok := os.LookupEnv("WALLCLOCK_LOGGING_RATE"); ok {
		if sec, err := strconv.ParseUint(v, 10, 64); err != nil {
			Warn("invalid value for WALLCLOCK_LOGGING_RATE: %v", err)
		} else {
			errrate = time.Duration(sec) * time.Second
		}
	}
}

type errorReport struct {
	err   error
	count uint64
}

// Error aggregates errors under key, printing them out at most once per
// errrate window. TransientPerSample errors (a signal timed out, a thread
// vanished) go through here rather than through Warn directly, because a
// misbehaving population of threads can otherwise produce a log line per
// sample.
func Error(key, format string, a ...interface{}) {
	if reachedLimit(key) {
		return
	}
	errmu.Lock()
	defer errmu.Unlock()
	report, ok := erragg[key]
	if !ok {
		erragg[key] = &errorReport{err: fmt.Errorf(format, a...)}
		report = erragg[key]
	}
	report.count++
	if !erron {
		erron = true
		time.AfterFunc(errrate, Flush)
	}
}

const defaultErrorLimit = 50

func reachedLimit(key string) bool {
	errmu.RLock()
	e, ok := erragg[key]
	errmu.RUnlock()
	return ok && e.count > defaultErrorLimit
}

// Flush flushes and resets all aggregated errors to the logger.
func Flush() {
	errmu.Lock()
	defer errmu.Unlock()
	for _, report := range erragg {
		msg := fmt.Sprintf("%v", report.err)
		if report.count > defaultErrorLimit {
			msg += fmt.Sprintf(", %d+ additional messages skipped", defaultErrorLimit)
		} else if report.count > 1 {
			msg += fmt.Sprintf(", %d additional messages skipped", report.count-1)
		}
		printMsg("ERROR", msg)
	}
	for k := range erragg {
		delete(erragg, k)
	}
	erron = false
}

func printMsg(lvl, format string, a ...interface{}) {
	msg := fmt.Sprintf("%s %s: %s\n", prefixMsg, lvl, fmt.Sprintf(format, a...))
	mu.RLock()
	logger.Log(msg)
	mu.RUnlock()
}

// RecordLogger is a Logger test double that records every message it
// receives instead of printing it.
type RecordLogger struct {
	mu   sync.Mutex
	logs []string
}

// Log implements Logger.
func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, msg)
}

// Logs returns a copy of the recorded messages so far.
func (r *RecordLogger) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.logs))
	copy(out, r.logs)
	return out
}

// Reset clears the recorded messages.
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = nil
}
