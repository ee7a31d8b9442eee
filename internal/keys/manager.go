package keys

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Manager owns the registered keys and drives their debounce and gesture
// logic once per poll tick. All key state is mutated with the lock held,
// so registry calls from other goroutines cannot race a tick in progress.
type Manager struct {
	reader LevelReader

	mu     sync.Mutex
	keys   map[int]*keyState
	order  []int // registration order, drives per-tick iteration
	sinks  []Sink
	counts Counts
}

// NewManager creates a Manager that samples levels through reader.
func NewManager(reader LevelReader) *Manager {
	return &Manager{
		reader: reader,
		keys:   make(map[int]*keyState),
	}
}

// AddKey registers a key. The key's current physical level is read once to
// seed the debounce state, so adding a key that is already held does not
// produce a spurious event on the next tick.
func (m *Manager) AddKey(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	level, err := m.reader.Read(cfg.Pin)
	if err != nil {
		return fmt.Errorf("read initial level of pin %d: %w", cfg.Pin, err)
	}
	pressed := level != cfg.ActiveLow

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[cfg.Pin]; ok {
		return fmt.Errorf("add pin %d: %w", cfg.Pin, ErrDuplicateKey)
	}
	m.keys[cfg.Pin] = newKeyState(cfg, pressed, time.Now())
	m.order = append(m.order, cfg.Pin)
	return nil
}

// RemoveKey unregisters a key. No further events are emitted for it.
func (m *Manager) RemoveKey(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[pin]; !ok {
		return fmt.Errorf("remove pin %d: %w", pin, ErrNotFound)
	}
	delete(m.keys, pin)
	for i, p := range m.order {
		if p == pin {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetEnabled enables or disables a key. A disabled key is skipped entirely
// each tick: no sampling, no timers, no events. Its state is frozen, so
// re-enabling a key whose level changed meanwhile can leave isPressed out
// of step with the physical key until the next stable transition.
func (m *Manager) SetEnabled(pin int, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[pin]
	if !ok {
		return fmt.Errorf("set enabled pin %d: %w", pin, ErrNotFound)
	}
	k.enabled = enabled
	return nil
}

// StableState returns the debounced pressed state of a key.
func (m *Manager) StableState(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[pin]
	if !ok {
		return false, fmt.Errorf("state of pin %d: %w", pin, ErrNotFound)
	}
	return k.stable, nil
}

// AttachSink adds a sink. Every emitted event is delivered to all sinks in
// attach order, from the polling goroutine.
func (m *Manager) AttachSink(s Sink) {
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// RegisterCallback attaches fn as a sink. The callback runs synchronously
// in the polling goroutine and should hand work off rather than do it
// inline.
func (m *Manager) RegisterCallback(fn func(Event)) {
	m.AttachSink(SinkFunc(fn))
}

// Poll runs one tick: sample every enabled key in registration order and
// emit whatever events result. A failed read is logged and treated as
// "level unchanged this tick" — timers still advance, so timeouts and
// hold/repeat are not stalled by a flaky line.
func (m *Manager) Poll(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pin := range m.order {
		k := m.keys[pin]
		if !k.enabled {
			continue
		}

		pressed := k.raw
		level, err := m.reader.Read(pin)
		if err != nil {
			log.Printf("keys: read pin %d: %v", pin, err)
		} else {
			pressed = level != k.cfg.ActiveLow
		}

		for _, e := range k.step(pressed, now) {
			m.counts.add(e.Type)
			for _, s := range m.sinks {
				s.Deliver(e)
			}
		}
	}
}

// Run polls on every tick until ctx is cancelled. Cancellation is only
// observed at tick boundaries; a tick in progress always completes.
func (m *Manager) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.Poll(now())
		}
	}
}

// CountsSnapshot returns a copy of the per-type event counts.
func (m *Manager) CountsSnapshot() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}

// KeyInfo is a read-only view of one registered key.
type KeyInfo struct {
	Pin     int
	Pressed bool
	Enabled bool
}

// Keys returns a snapshot of all registered keys sorted by pin.
func (m *Manager) Keys() []KeyInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]KeyInfo, 0, len(m.keys))
	for pin, k := range m.keys {
		infos = append(infos, KeyInfo{Pin: pin, Pressed: k.stable, Enabled: k.enabled})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Pin < infos[j].Pin })
	return infos
}
