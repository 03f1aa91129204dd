package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestMachine() *Machine {
	return NewMachine(30*time.Second, time.Second)
}

func TestShortPress_FinishesOnRelease(t *testing.T) {
	m := newTestMachine()

	assert.Equal(t, EffectStartCapture, m.Apply(EventPress, t0))
	assert.Equal(t, StateCapturing, m.State())

	// Released before the long-press threshold.
	assert.Equal(t, EffectFinalize, m.Apply(EventRelease, t0.Add(400*time.Millisecond)))
	assert.Equal(t, StateFinished, m.State())
}

func TestLongPress_LocksAndIgnoresRelease(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	assert.Equal(t, EffectLock, m.Apply(EventHoldElapsed, t0.Add(time.Second)))
	assert.Equal(t, StateLocked, m.State())

	// Releasing a locked control does nothing.
	assert.Equal(t, EffectNone, m.Apply(EventRelease, t0.Add(2*time.Second)))
	assert.Equal(t, StateLocked, m.State())
}

func TestLockedSession_EndsOnSecondPress(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	m.Apply(EventHoldElapsed, t0.Add(time.Second))
	m.Apply(EventRelease, t0.Add(2*time.Second))

	assert.Equal(t, EffectFinalize, m.Apply(EventPress, t0.Add(5*time.Second)))
	assert.Equal(t, StateFinished, m.State())
}

func TestLockedSession_EndsOnMaxDuration(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	m.Apply(EventHoldElapsed, t0.Add(time.Second))

	assert.Equal(t, EffectFinalize, m.Apply(EventMaxElapsed, t0.Add(30*time.Second)))
	assert.Equal(t, StateFinished, m.State())
}

func TestMaxDuration_EndsUnlockedSessionToo(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	assert.Equal(t, EffectFinalize, m.Apply(EventMaxElapsed, t0.Add(30*time.Second)))
	assert.Equal(t, StateFinished, m.State())
}

func TestRearm_ReturnsToIdle(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	m.Apply(EventRelease, t0.Add(100*time.Millisecond))
	assert.Equal(t, StateFinished, m.State())

	m.Apply(EventRearm, t0.Add(time.Second))
	assert.Equal(t, StateIdle, m.State())

	// The cycle repeats.
	assert.Equal(t, EffectStartCapture, m.Apply(EventPress, t0.Add(2*time.Second)))
}

func TestInvalidEvents_AreNoOps(t *testing.T) {
	m := newTestMachine()

	assert.Equal(t, EffectNone, m.Apply(EventRelease, t0))
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, EffectNone, m.Apply(EventHoldElapsed, t0))
	assert.Equal(t, EffectNone, m.Apply(EventMaxElapsed, t0))
	assert.Equal(t, EffectNone, m.Apply(EventRearm, t0))

	m.Apply(EventPress, t0)
	assert.Equal(t, EffectNone, m.Apply(EventPress, t0.Add(time.Millisecond)))
	assert.Equal(t, StateCapturing, m.State())
}

func TestProgress_LinearCappedAtOne(t *testing.T) {
	m := newTestMachine()
	m.Apply(EventPress, t0)

	assert.Equal(t, 0.0, m.Progress(t0))
	assert.InDelta(t, 0.5, m.Progress(t0.Add(15*time.Second)), 1e-9)
	assert.Equal(t, 1.0, m.Progress(t0.Add(30*time.Second)))
	assert.Equal(t, 1.0, m.Progress(t0.Add(45*time.Second)))
}

func TestProgress_ResetsWhenFinished(t *testing.T) {
	m := newTestMachine()
	m.Apply(EventPress, t0)
	m.Apply(EventRelease, t0.Add(200*time.Millisecond))

	assert.Equal(t, 0.0, m.Progress(t0.Add(200*time.Millisecond)))
}

func TestProgress_ZeroWhileIdle(t *testing.T) {
	m := newTestMachine()
	assert.Equal(t, 0.0, m.Progress(t0))
}

func TestReset_ForcesIdleFromAnyState(t *testing.T) {
	m := newTestMachine()

	m.Apply(EventPress, t0)
	m.Apply(EventHoldElapsed, t0.Add(time.Second))
	assert.Equal(t, StateLocked, m.State())

	m.Reset()
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0.0, m.Progress(t0.Add(2*time.Second)))
}
