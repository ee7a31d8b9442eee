//go:build !linux

package gpio

import "errors"

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chipName string) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Request is not implemented on non-Linux platforms.
func (r *RealReader) Request(line int, pullUp bool) error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read(line int) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Release is not implemented on non-Linux platforms.
func (r *RealReader) Release(line int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
