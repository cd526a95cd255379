// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

//go:build !linux

package wallclock

import "gopkg.in/DataDog/go-wallclock.v1/internal/handshake"

// newHandshakeSlot always returns the pure-Go simulated slot: there is
// no native capture handler outside Linux (see internal/nativesig).
func newHandshakeSlot(OS) slot {
	return handshake.New()
}
