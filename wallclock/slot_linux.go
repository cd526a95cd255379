// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

//go:build linux

package wallclock

import (
	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/internal/nativesig"
	"gopkg.in/DataDog/go-wallclock.v1/internal/osthreads"
)

// newHandshakeSlot picks the real cgo-backed native slot when driving
// the real Linux OS facade, and the pure-Go simulated slot for any other
// (typically test-double) facade.
func newHandshakeSlot(os OS) slot {
	if _, ok := os.(*osthreads.LinuxFacade); ok {
		return nativesig.Slot{}
	}
	return handshake.New()
}
