package keys

import "time"

// keyState holds the mutable per-key state. It is owned by the Manager
// and only ever touched while the Manager's lock is held.
type keyState struct {
	cfg Config

	// raw is the last sampled level, stable the debounced one. Both are
	// polarity-corrected: true means pressed.
	raw    bool
	stable bool

	lastChange time.Time // last raw edge, resets the debounce timer
	pressStart time.Time

	isPressed        bool
	longPressEmitted bool
	lastRepeat       time.Time

	clickCount    int
	lastClick     time.Time
	waitingDouble bool

	enabled bool
}

// newKeyState seeds raw and stable from the key's current level so the
// first tick does not fabricate a transition.
func newKeyState(cfg Config, pressed bool, now time.Time) *keyState {
	return &keyState{
		cfg:        cfg,
		raw:        pressed,
		stable:     pressed,
		lastChange: now,
		enabled:    true,
	}
}

// step feeds one polarity-corrected sample into the debounce filter and
// gesture classifier and returns the events to emit, in emission order.
// It must be called once per tick even when the level has not changed,
// since double-click timeouts and hold/repeat are time-driven.
func (k *keyState) step(pressed bool, now time.Time) []Event {
	var events []Event

	// Debounce: every raw edge restarts the timer, so a bouncing key
	// never promotes. A zero interval commits on the first sample.
	if pressed != k.raw {
		k.raw = pressed
		k.lastChange = now
	}
	if now.Sub(k.lastChange) >= k.cfg.Debounce && k.raw != k.stable {
		k.stable = k.raw
		if k.stable {
			events = append(events, k.press(now))
		} else {
			events = append(events, k.release(now)...)
		}
	}

	// Double-click window expired with a pending click: flush it as a
	// single click. clickCount is 1 here in practice but the flush keeps
	// the count-driven form of the original.
	if k.waitingDouble && now.Sub(k.lastClick) > k.cfg.DoubleClick {
		for i := 0; i < k.clickCount; i++ {
			events = append(events, Event{
				Pin:       k.cfg.Pin,
				Type:      EventSingleClick,
				Timestamp: now,
			})
		}
		k.clickCount = 0
		k.waitingDouble = false
	}

	// HOLD fires every tick while pressed; REPEAT only at repeat
	// boundaries. This runs after release classification, so a release
	// tick never produces a trailing HOLD.
	if k.isPressed {
		held := now.Sub(k.pressStart)
		events = append(events, Event{
			Pin:       k.cfg.Pin,
			Type:      EventHold,
			Duration:  held,
			Timestamp: now,
		})
		if k.cfg.Repeat > 0 && now.Sub(k.lastRepeat) >= k.cfg.Repeat {
			events = append(events, Event{
				Pin:       k.cfg.Pin,
				Type:      EventRepeat,
				Duration:  held,
				Timestamp: now,
			})
			k.lastRepeat = now
		}
	}

	return events
}

func (k *keyState) press(now time.Time) Event {
	k.pressStart = now
	k.isPressed = true
	k.longPressEmitted = false
	k.lastRepeat = now
	return Event{Pin: k.cfg.Pin, Type: EventPressed, Timestamp: now}
}

// release emits RELEASED and then classifies the completed press as a
// click, double-click or long press.
func (k *keyState) release(now time.Time) []Event {
	duration := now.Sub(k.pressStart)
	k.isPressed = false

	events := []Event{{
		Pin:       k.cfg.Pin,
		Type:      EventReleased,
		Duration:  duration,
		Timestamp: now,
	}}

	// The boundary is strict: a release at exactly LongPress is a long
	// press, not a click.
	if duration < k.cfg.LongPress {
		if !k.cfg.EnableDoubleClick {
			events = append(events, Event{
				Pin:       k.cfg.Pin,
				Type:      EventSingleClick,
				Duration:  duration,
				Timestamp: now,
			})
			return events
		}

		k.clickCount++
		k.lastClick = now
		k.waitingDouble = true
		if k.clickCount == 2 {
			events = append(events, Event{
				Pin:       k.cfg.Pin,
				Type:      EventDoubleClick,
				Duration:  duration,
				Timestamp: now,
			})
			k.clickCount = 0
			k.waitingDouble = false
		}
		// First click: emission deferred until a second click or the
		// double-click timeout.
		return events
	}

	events = append(events, Event{
		Pin:       k.cfg.Pin,
		Type:      EventLongPress,
		Duration:  duration,
		Timestamp: now,
	})
	k.longPressEmitted = true
	// A long press cancels any pending click sequence.
	k.clickCount = 0
	k.waitingDouble = false
	return events
}
