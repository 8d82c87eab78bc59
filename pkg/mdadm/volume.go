package mdadm

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("mdadm: negative offset")

// Volume adapts a Driver to io.ReaderAt and io.WriterAt. Transfers of any
// length are split into calls no larger than the maximum I/O size.
type Volume struct {
	d *Driver
}

var (
	_ io.ReaderAt = (*Volume)(nil)
	_ io.WriterAt = (*Volume)(nil)
)

// NewVolume wraps d. The driver must be mounted before any I/O.
func NewVolume(d *Driver) *Volume {
	return &Volume{d: d}
}

// Driver returns the underlying driver.
func (v *Volume) Driver() *Driver {
	return v.d
}

// Size returns the number of addressable bytes.
func (v *Volume) Size() int64 {
	return int64(v.d.Geometry().Size())
}

// Writable reports whether writes are currently permitted.
func (v *Volume) Writable() bool {
	return v.d.Writable()
}

// ReadAt reads len(p) bytes at off. Reads reaching the end of the volume
// return the bytes available and io.EOF.
func (v *Volume) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	size := v.Size()
	if off >= size {
		return 0, io.EOF
	}

	var eof error
	if int64(len(p)) > size-off {
		p = p[:size-off]
		eof = io.EOF
	}

	n, err := v.split(p, off, v.d.Read)
	if err != nil {
		return n, err
	}
	return n, eof
}

// WriteAt writes p at off. A write that does not fit fails whole with
// ErrOutOfBounds.
func (v *Volume) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off+int64(len(p)) > v.Size() {
		return 0, ErrOutOfBounds
	}
	return v.split(p, off, v.d.Write)
}

func (v *Volume) split(p []byte, off int64, fn func(addr, length uint32, buf []byte) (int, error)) (int, error) {
	limit := int(v.d.Geometry().MaxIOSize)
	done := 0

	for done < len(p) {
		chunk := min(len(p)-done, limit)
		n, err := fn(uint32(off)+uint32(done), uint32(chunk), p[done:done+chunk])
		done += n
		if err != nil {
			return done, err
		}
	}
	return done, nil
}
