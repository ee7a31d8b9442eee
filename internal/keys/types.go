// Package keys contains the key input engine: per-key debouncing, gesture
// classification, and the polling registry that drives them.
// Raw GPIO access is abstracted behind LevelReader; time is always passed
// in as a parameter so the logic can be tested without sleeping.
package keys

import (
	"errors"
	"time"
)

// EventType identifies a classified key gesture.
type EventType string

const (
	EventPressed     EventType = "PRESSED"
	EventReleased    EventType = "RELEASED"
	EventSingleClick EventType = "SINGLE_CLICK"
	EventDoubleClick EventType = "DOUBLE_CLICK"
	EventLongPress   EventType = "LONG_PRESS"
	EventHold        EventType = "HOLD"
	EventRepeat      EventType = "REPEAT"
)

// Event is a single classified key event.
//
// Duration depends on Type: for RELEASED, SINGLE_CLICK, DOUBLE_CLICK and
// LONG_PRESS it is the length of the press that produced the event; for
// HOLD and REPEAT it is the time the key has been held so far; for
// PRESSED, and for SINGLE_CLICK events flushed by a double-click timeout,
// it is zero.
type Event struct {
	Pin       int
	Type      EventType
	Duration  time.Duration
	Timestamp time.Time
}

// Config describes a single key. Immutable after AddKey.
type Config struct {
	// Pin is the GPIO line offset. Unique per key.
	Pin int

	// ActiveLow inverts the raw level: a low physical level means pressed.
	ActiveLow bool

	// Debounce is how long a raw level must hold before it is accepted as
	// stable. Zero accepts any single sample immediately.
	Debounce time.Duration

	// LongPress is the threshold separating a click from a long press.
	// A press released at exactly LongPress counts as a long press.
	LongPress time.Duration

	// Repeat is the interval between REPEAT events while held. Zero
	// disables repeats.
	Repeat time.Duration

	// EnableDoubleClick defers SINGLE_CLICK emission by up to DoubleClick
	// so that a second click can be classified as DOUBLE_CLICK.
	EnableDoubleClick bool

	// DoubleClick is the window after a click in which a second click
	// forms a double-click.
	DoubleClick time.Duration
}

// validate reports whether the config is well-formed.
func (c Config) validate() error {
	if c.Pin < 0 {
		return ErrInvalidConfig
	}
	if c.Debounce < 0 || c.LongPress < 0 || c.Repeat < 0 || c.DoubleClick < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Counts tracks the number of each event type emitted since startup.
type Counts struct {
	Pressed     int
	Released    int
	SingleClick int
	DoubleClick int
	LongPress   int
	Hold        int
	Repeat      int
}

func (c *Counts) add(t EventType) {
	switch t {
	case EventPressed:
		c.Pressed++
	case EventReleased:
		c.Released++
	case EventSingleClick:
		c.SingleClick++
	case EventDoubleClick:
		c.DoubleClick++
	case EventLongPress:
		c.LongPress++
	case EventHold:
		c.Hold++
	case EventRepeat:
		c.Repeat++
	}
}

// Errors returned by Manager registry operations.
var (
	ErrDuplicateKey  = errors.New("keys: pin already registered")
	ErrNotFound      = errors.New("keys: pin not registered")
	ErrInvalidConfig = errors.New("keys: invalid key config")
)

// LevelReader reads the raw physical level of a GPIO line. The engine
// applies polarity itself; implementations return the electrical level.
type LevelReader interface {
	Read(pin int) (bool, error)
}
