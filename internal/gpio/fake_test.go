package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderLevels(t *testing.T) {
	f := NewFakeReader()

	// Unset lines read low.
	v, err := f.Read(4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v {
		t.Error("unset line should read low")
	}

	f.SetLevel(4, true)
	v, err = f.Read(4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !v {
		t.Error("line 4 should read high after SetLevel")
	}

	// Other lines unaffected.
	v, _ = f.Read(5)
	if v {
		t.Error("line 5 should still read low")
	}
}

func TestFakeReaderRequestRelease(t *testing.T) {
	f := NewFakeReader()

	if err := f.Request(17, true); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if err := f.Request(17, false); err == nil {
		t.Error("double Request should fail")
	}

	pullUp, ok := f.Requested(17)
	if !ok {
		t.Fatal("line 17 should be requested")
	}
	if !pullUp {
		t.Error("line 17 should be pull-up")
	}

	if err := f.Release(17); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := f.Requested(17); ok {
		t.Error("line 17 should be released")
	}
	if err := f.Release(17); err == nil {
		t.Error("releasing an unrequested line should fail")
	}
}

func TestFakeReaderReadError(t *testing.T) {
	f := NewFakeReader()
	wantErr := errors.New("simulated failure")
	f.ReadError = wantErr

	if _, err := f.Read(1); !errors.Is(err, wantErr) {
		t.Errorf("Read: got %v, want %v", err, wantErr)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader()
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.Closed {
		t.Error("Closed should be true after Close")
	}
}
