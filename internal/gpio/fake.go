package gpio

import (
	"fmt"
	"sync"
)

// FakeReader is a test double with settable line levels.
type FakeReader struct {
	mu sync.Mutex

	// levels holds the current physical level per line.
	levels map[int]bool

	// requested tracks lines claimed via Request, with their bias.
	requested map[int]bool // line -> pullUp

	// ReadError, if set, will be returned by every Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReader creates a FakeReader with all levels low.
func NewFakeReader() *FakeReader {
	return &FakeReader{
		levels:    make(map[int]bool),
		requested: make(map[int]bool),
	}
}

// SetLevel sets the physical level of a line.
func (f *FakeReader) SetLevel(line int, high bool) {
	f.mu.Lock()
	f.levels[line] = high
	f.mu.Unlock()
}

// Request records the line claim.
func (f *FakeReader) Request(line int, pullUp bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requested[line]; ok {
		return fmt.Errorf("line %d already requested", line)
	}
	f.requested[line] = pullUp
	return nil
}

// Requested reports whether the line was claimed, and with which bias.
func (f *FakeReader) Requested(line int) (pullUp, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pullUp, ok = f.requested[line]
	return pullUp, ok
}

// Read returns the current level of the line.
func (f *FakeReader) Read(line int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.levels[line], nil
}

// Release forgets the line claim.
func (f *FakeReader) Release(line int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requested[line]; !ok {
		return fmt.Errorf("line %d not requested", line)
	}
	delete(f.requested, line)
	return nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
