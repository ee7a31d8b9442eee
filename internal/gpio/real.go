//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using the Linux GPIO
// character device. Lines are requested on demand and cached.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealReader opens the named GPIO chip ("gpiochip0" on a Pi).
func NewRealReader(chipName string) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &RealReader{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// Request claims the line as an input with the bias matching the key's
// polarity: pull-up for active-low keys so the released level floats
// high, pull-down otherwise.
func (r *RealReader) Request(line int, pullUp bool) error {
	if _, ok := r.lines[line]; ok {
		return fmt.Errorf("line %d already requested", line)
	}

	bias := gpiocdev.WithPullDown
	if pullUp {
		bias = gpiocdev.WithPullUp
	}
	l, err := r.chip.RequestLine(line, gpiocdev.AsInput, bias)
	if err != nil {
		return fmt.Errorf("request line %d: %w", line, err)
	}
	r.lines[line] = l
	return nil
}

// Read returns the raw physical level of a requested line.
func (r *RealReader) Read(line int) (bool, error) {
	l, ok := r.lines[line]
	if !ok {
		return false, fmt.Errorf("line %d not requested", line)
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", line, err)
	}
	return v != 0, nil
}

// Release frees a single line.
func (r *RealReader) Release(line int) error {
	l, ok := r.lines[line]
	if !ok {
		return fmt.Errorf("line %d not requested", line)
	}
	delete(r.lines, line)
	if err := l.Close(); err != nil {
		return fmt.Errorf("close line %d: %w", line, err)
	}
	return nil
}

// Close releases all lines and the chip.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	for line, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", line, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", line, err))
		}
	}
	r.lines = make(map[int]*gpiocdev.Line)

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
