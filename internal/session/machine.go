// Package session governs the lifecycle of one capture gesture: tap vs.
// long-press semantics, the bounded session timer, and finalization of the
// accumulated detections into the cart.
package session

import "time"

// State is the explicit capture state. The informal flag soup this replaces
// (isCapturing / isLongPress / isCaptureFinished) allowed combinations that
// are never valid, like locked-while-finished; the tagged state does not.
type State int

const (
	// StateIdle: no session running.
	StateIdle State = iota
	// StateCapturing: the control is held, frames are being sampled and the
	// long-press timer is armed. Capture begins the instant the control is
	// pressed; arming and capturing are one transition.
	StateCapturing
	// StateLocked: the control was held past the long-press threshold.
	// Releasing it no longer stops the session.
	StateLocked
	// StateFinished: sampling has stopped and the session's line items are
	// being handed to the cart.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateLocked:
		return "locked"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is an input to the state machine: user gestures and timer expiries.
type Event int

const (
	EventPress Event = iota
	EventRelease
	EventHoldElapsed // long-press threshold reached while still held
	EventMaxElapsed  // maximum session duration reached
	EventRearm       // start a new session from finished ("add more products")
)

// Effect tells the controller what a transition requires of the outside
// world. The machine itself stays pure and clock-free.
type Effect int

const (
	EffectNone Effect = iota
	EffectStartCapture
	EffectLock // haptic pulse marks entry into the locked state
	EffectFinalize
)

// Machine is the capture session state machine. It is not safe for
// concurrent use; the controller serializes events into it.
type Machine struct {
	state     State
	startedAt time.Time

	maxDuration   time.Duration
	holdThreshold time.Duration
}

func NewMachine(maxDuration, holdThreshold time.Duration) *Machine {
	return &Machine{
		state:         StateIdle,
		maxDuration:   maxDuration,
		holdThreshold: holdThreshold,
	}
}

func (m *Machine) State() State { return m.state }

// HoldThreshold reports how long after a press the hold timer must fire.
func (m *Machine) HoldThreshold() time.Duration { return m.holdThreshold }

// MaxDuration reports the session duration cutoff.
func (m *Machine) MaxDuration() time.Duration { return m.maxDuration }

// Progress is the linear session progress in [0, 1], driven by wall-clock
// time so detection latency never delays it. It reads exactly 1 at the
// maximum duration and never beyond, and resets to 0 once finished.
func (m *Machine) Progress(now time.Time) float64 {
	switch m.state {
	case StateCapturing, StateLocked:
		elapsed := now.Sub(m.startedAt)
		if elapsed >= m.maxDuration {
			return 1
		}
		if elapsed < 0 {
			return 0
		}
		return float64(elapsed) / float64(m.maxDuration)
	default:
		return 0
	}
}

// Reset forces the machine back to idle from any state. Used when capture
// could not start (no camera, no channel) and on a hard reset.
func (m *Machine) Reset() {
	m.state = StateIdle
	m.startedAt = time.Time{}
}

// Apply is the single transition function. It returns the effect the
// controller must carry out; invalid event/state pairs are no-ops.
func (m *Machine) Apply(event Event, now time.Time) Effect {
	switch m.state {
	case StateIdle:
		if event == EventPress {
			m.state = StateCapturing
			m.startedAt = now
			return EffectStartCapture
		}

	case StateCapturing:
		switch event {
		case EventRelease:
			// Short press: stop on release.
			m.state = StateFinished
			return EffectFinalize
		case EventHoldElapsed:
			m.state = StateLocked
			return EffectLock
		case EventMaxElapsed:
			m.state = StateFinished
			return EffectFinalize
		}

	case StateLocked:
		switch event {
		case EventPress, EventMaxElapsed:
			// A locked session ends on a second press or on the cutoff.
			m.state = StateFinished
			return EffectFinalize
		case EventRelease:
			// Releasing a locked control does nothing.
		}

	case StateFinished:
		if event == EventRearm {
			m.state = StateIdle
			return EffectNone
		}
	}

	return EffectNone
}
