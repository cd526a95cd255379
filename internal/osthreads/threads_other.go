//go:build !linux

package osthreads

import (
	"errors"
	"syscall"
	"time"
)

// ErrUnsupported is returned by ListThreads and InstallSignalHandler of
// the non-Linux Facade stub. Real signal-mediated wall-clock sampling
// needs tgkill-style per-thread signal delivery and a raw ucontext_t,
// neither of which this module implements outside Linux (see
// internal/nativesig); the
// spec's own Non-goals do not ask for portability beyond the platform the
// original profiler targets.
var ErrUnsupported = errors.New("osthreads: unsupported on this platform")

// UnsupportedFacade satisfies Facade so callers can still compile and
// construct a wallclock.Sampler on unsupported platforms; every method
// that would need real OS cooperation fails fast instead of panicking.
type UnsupportedFacade struct{}

func NewLinuxFacade() *UnsupportedFacade { return &UnsupportedFacade{} }

func (UnsupportedFacade) NowNS() int64            { return time.Now().UnixNano() }
func (UnsupportedFacade) Sleep(d time.Duration)   { time.Sleep(d) }
func (UnsupportedFacade) ThreadID() int64         { return 0 }
func (UnsupportedFacade) ThreadState(int64) ThreadState { return Unknown }

func (UnsupportedFacade) ListThreads() (ThreadList, error) { return nil, ErrUnsupported }
func (UnsupportedFacade) SendSignal(int64, syscall.Signal) bool { return false }
func (UnsupportedFacade) InstallSignalHandler(syscall.Signal, SignalHandler) error {
	return ErrUnsupported
}
