package mdadm

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestVolume_LargeTransfers(t *testing.T) {
	r := newMountedRig(t)
	vol := NewVolume(r.driver)

	if got := vol.Size(); got != 2048 {
		t.Fatalf("Size() = %d, want 2048", got)
	}

	// larger than one driver call
	data := pattern(1500, 3)
	if n, err := vol.WriteAt(data, 300); err != nil || n != len(data) {
		t.Fatalf("WriteAt() = %d, %v", n, err)
	}

	got := make([]byte, len(data))
	if n, err := vol.ReadAt(got, 300); err != nil || n != len(data) {
		t.Fatalf("ReadAt() = %d, %v", n, err)
	}
	if !bytes.Equal(got, data) {
		t.Error("ReadAt() does not match WriteAt()")
	}
}

func TestVolume_Bounds(t *testing.T) {
	r := newMountedRig(t)
	vol := NewVolume(r.driver)

	buf := make([]byte, 100)
	n, err := vol.ReadAt(buf, 2000)
	if n != 48 || err != io.EOF {
		t.Errorf("ReadAt() past end = %d, %v, want 48, EOF", n, err)
	}
	if n, err := vol.ReadAt(buf, 2048); n != 0 || err != io.EOF {
		t.Errorf("ReadAt() at end = %d, %v, want 0, EOF", n, err)
	}
	if _, err := vol.ReadAt(buf, -1); err == nil {
		t.Error("ReadAt() with negative offset succeeded")
	}
	if _, err := vol.WriteAt(buf, 2000); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("WriteAt() past end error = %v, want %v", err, ErrOutOfBounds)
	}
}

func TestVolume_RequiresPermission(t *testing.T) {
	r := newMountedRig(t)
	if err := r.driver.RevokeWritePermission(); err != nil {
		t.Fatalf("RevokeWritePermission() error = %v", err)
	}
	vol := NewVolume(r.driver)

	if vol.Writable() {
		t.Error("Writable() = true after revoke")
	}
	if _, err := vol.WriteAt([]byte("x"), 0); !errors.Is(err, ErrWriteNotPermitted) {
		t.Errorf("WriteAt() error = %v, want %v", err, ErrWriteNotPermitted)
	}
}
