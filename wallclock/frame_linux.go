// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

//go:build linux

package wallclock

import (
	"unsafe"

	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/internal/nativesig"
)

// syscallOpcode is the x86_64 SYSCALL instruction encoding (0f 05).
var syscallOpcode = [2]byte{0x0f, 0x05}

// eintr is the negated errno value a syscall's return register holds
// when a signal interrupted it and the kernel did not restart it.
const eintr = -4

// linuxFrameInspector reads live process memory at a captured PC to
// decide whether it points at a syscall instruction, and reads the
// interrupted thread's RAX out of its ucontext_t to check for an EINTR
// return, following StackFrame::isSyscall / StackFrame::checkInterruptedSyscall
// from the original profiler's x86_64 backend.
type linuxFrameInspector struct{}

// newDefaultFrameInspector returns the platform's built-in
// StackFrameInspector, used when no WithStackFrameInspector option is
// given.
func newDefaultFrameInspector() StackFrameInspector { return linuxFrameInspector{} }

func (linuxFrameInspector) PC(ctx handshake.CapturedContext) uintptr { return ctx.PC }

func (linuxFrameInspector) IsSyscall(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	b := (*[2]byte)(unsafe.Pointer(pc))
	return *b == syscallOpcode
}

func (linuxFrameInspector) CheckInterruptedSyscall(ctx handshake.CapturedContext) bool {
	if ctx.Ctx == 0 {
		return false
	}
	return nativesig.RegRAX(ctx.Ctx) == eintr
}
