// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads raw GPIO line levels. Lines must be requested before the
// first read; polarity interpretation is left to the caller.
type Reader interface {
	// Request claims the line as an input. pullUp selects the internal
	// bias: pull-up for active-low keys, pull-down otherwise.
	Request(line int, pullUp bool) error

	// Read returns the raw physical level of a requested line
	// (true = high).
	Read(line int) (bool, error)

	// Release frees a single requested line.
	Release(line int) error

	// Close releases all requested lines and the chip.
	Close() error
}

// DefaultChip is the GPIO character device used on Raspberry Pi.
const DefaultChip = "gpiochip0"
