// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveIntervalUsesWallWhenSet(t *testing.T) {
	a := Arguments{WallInterval: 3 * time.Millisecond, DefaultInterval: 7 * time.Millisecond}
	assert.Equal(t, 3*time.Millisecond, a.EffectiveInterval())
}

func TestEffectiveIntervalFallsBackToDefaultIntervalWhenWallUnset(t *testing.T) {
	a := Arguments{WallInterval: -1, DefaultInterval: 7 * time.Millisecond}
	assert.Equal(t, 7*time.Millisecond, a.EffectiveInterval())
}

// WallInterval == 0 picks interval=wall=0 first, and only then falls
// back to 5x DEFAULT for idle-sampling; DefaultInterval must not be
// consulted a second time once wall was the branch taken.
func TestEffectiveIntervalZeroWallIgnoresDefaultIntervalWhenIdle(t *testing.T) {
	a := Arguments{WallInterval: 0, DefaultInterval: 7 * time.Millisecond, EventName: "wall"}
	assert.Equal(t, 5*DefaultSamplingInterval, a.EffectiveInterval())
}

// A set WallInterval (>= 0) selects idle-sampling even without the "wall"
// event name, so a zero wall still falls back to 5x DEFAULT.
func TestEffectiveIntervalZeroWallIgnoresDefaultIntervalWithoutWallEvent(t *testing.T) {
	a := Arguments{WallInterval: 0, DefaultInterval: 7 * time.Millisecond}
	assert.Equal(t, 5*DefaultSamplingInterval, a.EffectiveInterval())
}

func TestEffectiveIntervalUnsetFallsBackWithoutDefaultInterval(t *testing.T) {
	idle := Arguments{WallInterval: -1, EventName: "wall"}
	assert.Equal(t, 5*DefaultSamplingInterval, idle.EffectiveInterval())

	notIdle := Arguments{WallInterval: -1}
	assert.Equal(t, DefaultSamplingInterval, notIdle.EffectiveInterval())
}
