//go:build !linux

package nativesig

import (
	"syscall"
	"time"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
)

func install(syscall.Signal) error { return ErrUnsupported }

func setRuntimeEnvAccessor(RuntimeEnvAccessor) {}

// Arm, TargetTID, WaitContextReady, CapturedContext, Release, and Abandon
// are unreachable on this platform: osthreads.UnsupportedFacade.
// InstallSignalHandler always returns ErrUnsupported before the engine
// would call any of them.

func Arm(int64) uint64 { return 0 }

func TargetTID() int64 { return -1 }

func WaitContextReady(time.Duration) bool { return false }

func CapturedContext() handshake.CapturedContext { return handshake.CapturedContext{} }

func Release() {}

func Abandon() {}

func RegRAX(uintptr) int64 { return 0 }
