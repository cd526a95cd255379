// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

//go:build !linux

package wallclock

import "gopkg.in/DataDog/go-wallclock.v1/internal/handshake"

type unsupportedFrameInspector struct{}

func newDefaultFrameInspector() StackFrameInspector { return unsupportedFrameInspector{} }

func (unsupportedFrameInspector) PC(ctx handshake.CapturedContext) uintptr { return ctx.PC }

func (unsupportedFrameInspector) IsSyscall(uintptr) bool { return false }

func (unsupportedFrameInspector) CheckInterruptedSyscall(handshake.CapturedContext) bool {
	return false
}
