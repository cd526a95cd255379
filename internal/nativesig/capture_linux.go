//go:build linux

package nativesig

/*
#cgo CFLAGS: -std=c11 -D_GNU_SOURCE
#include <stdint.h>
#include <stdlib.h>

int nativesig_install(int sig);
void nativesig_set_runtime_env_accessor(void *fn);
uint64_t nativesig_arm(int64_t tid);
int64_t nativesig_target_tid(void);
int nativesig_wait_context_ready(int64_t timeout_ns);
void nativesig_get_context(uintptr_t *pc, uintptr_t *ctx, uintptr_t *env);
void nativesig_release(void);
void nativesig_abandon(void);
intptr_t nativesig_reg_rax(uintptr_t ucontext_addr);
*/
import "C"

import (
	"syscall"
	"time"
	"unsafe"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
)

func install(sig syscall.Signal) error {
	if rc := C.nativesig_install(C.int(sig)); rc != 0 {
		return syscall.Errno(rc)
	}
	return nil
}

func setRuntimeEnvAccessor(fn RuntimeEnvAccessor) {
	C.nativesig_set_runtime_env_accessor(unsafe.Pointer(uintptr(fn)))
}

// Arm prepares the process-wide native slot to accept exactly one signal
// delivery to tid and returns the generation stamped on this arming.
func Arm(tid int64) uint64 {
	return uint64(C.nativesig_arm(C.int64_t(tid)))
}

// TargetTID returns the tid the native slot is currently armed for, or -1
// if unarmed.
func TargetTID() int64 {
	return int64(C.nativesig_target_tid())
}

// WaitContextReady blocks until the handler has published a captured
// context or timeout elapses, matching internal/handshake.Slot's
// WaitContextReady.
func WaitContextReady(timeout time.Duration) bool {
	ns := int64(timeout)
	if timeout < 0 {
		ns = -1
	}
	return C.nativesig_wait_context_ready(C.int64_t(ns)) != 0
}

// CapturedContext reads back the context published by the handler.
func CapturedContext() handshake.CapturedContext {
	var pc, ctx, env C.uintptr_t
	C.nativesig_get_context(&pc, &ctx, &env)
	return handshake.CapturedContext{
		PC:         uintptr(pc),
		Ctx:        uintptr(ctx),
		RuntimeEnv: uintptr(env),
	}
}

// Release lets a blocked handler invocation return from the signal, the
// native equivalent of handshake.Slot.Release.
func Release() {
	C.nativesig_release()
}

// Abandon unblocks a handler invocation that never resolved (timeout) and
// invalidates the current generation so a late winner cannot publish into
// a slot the driver has stopped reading.
func Abandon() {
	C.nativesig_abandon()
}

// RegRAX reads the RAX register out of the ucontext_t at ctxAddr.
func RegRAX(ctxAddr uintptr) int64 {
	return int64(C.nativesig_reg_rax(C.uintptr_t(ctxAddr)))
}
