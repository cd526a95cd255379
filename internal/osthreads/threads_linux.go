//go:build linux

package osthreads

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"gopkg.in/DataDog/go-wallclock.v1/internal/nativesig"
)

// LinuxFacade implements Facade using /proc/[pid]/task for enumeration
// and state, and tgkill(2) for signal delivery, following the same
// primitives danpilch-umd's collectors and cilium-ebpf's signal masking
// use golang.org/x/sys/unix for.
type LinuxFacade struct {
	pid int

	mu      sync.Mutex
	wake    chan struct{}
	handler SignalHandler // retained for test parity only, see Facade doc
}

// NewLinuxFacade returns a Facade scoped to the current process.
func NewLinuxFacade() *LinuxFacade {
	return &LinuxFacade{pid: os.Getpid(), wake: make(chan struct{}, 1)}
}

func (f *LinuxFacade) NowNS() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Now().UnixNano()
	}
	return ts.Nano()
}

// Sleep sleeps for d or until WakeSleeper is called, whichever comes
// first, so Stop's wakeup signal (spec.md §4.5) can cut a pending
// inter-iteration sleep short.
func (f *LinuxFacade) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-f.wake:
	}
}

// WakeSleeper interrupts a pending Sleep, mirroring pthread_kill(thread,
// WAKEUP_SIGNAL) from the original implementation.
func (f *LinuxFacade) WakeSleeper() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *LinuxFacade) ThreadID() int64 {
	return int64(unix.Gettid())
}

func (f *LinuxFacade) ListThreads() (ThreadList, error) {
	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", f.pid))
	if err != nil {
		return nil, fmt.Errorf("osthreads: listing /proc/%d/task: %w", f.pid, err)
	}
	tids := make([]int64, 0, len(entries))
	for _, e := range entries {
		tid, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}
	return newSliceThreadList(tids), nil
}

// ThreadState reads the third whitespace-delimited field of
// /proc/[pid]/task/[tid]/stat, following the documented procfs format.
// 'R' is running; everything else (S, D, T, Z, ...) is treated as
// sleeping, since the only distinction the engine cares about is
// "actively executing" vs. not.
func (f *LinuxFacade) ThreadState(tid int64) ThreadState {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/stat", f.pid, tid))
	if err != nil {
		return Unknown
	}
	// The second field is "(comm)" and may itself contain spaces or
	// parens, so state comes right after the last ')'.
	s := bufio.NewScanner(strings.NewReader(string(data)))
	s.Split(bufio.ScanWords)
	line := string(data)
	idx := strings.LastIndexByte(line, ')')
	if idx < 0 || idx+2 >= len(line) {
		return Unknown
	}
	switch line[idx+2] {
	case 'R':
		return Running
	default:
		return Sleeping
	}
}

func (f *LinuxFacade) SendSignal(tid int64, sig syscall.Signal) bool {
	err := unix.Tgkill(f.pid, int(tid), sig)
	return err == nil
}

// InstallSignalHandler installs the real async-signal-safe capture
// handler for sig via internal/nativesig. h is kept only so this facade
// satisfies the same Facade contract the fake implementation does; the
// real handler runs entirely in C and never calls back into Go.
func (f *LinuxFacade) InstallSignalHandler(sig syscall.Signal, h SignalHandler) error {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return nativesig.Install(sig)
}

type sliceThreadList struct {
	tids   []int64
	cursor int
}

func newSliceThreadList(tids []int64) *sliceThreadList {
	return &sliceThreadList{tids: tids}
}

func (l *sliceThreadList) Next() (int64, bool) {
	if l.cursor >= len(l.tids) {
		return 0, false
	}
	tid := l.tids[l.cursor]
	l.cursor++
	return tid, true
}

func (l *sliceThreadList) Rewind() { l.cursor = 0 }

func (l *sliceThreadList) Size() int { return len(l.tids) }
