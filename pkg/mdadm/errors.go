package mdadm

import (
	"errors"
	"fmt"

	"github.com/OffBroadway/mdadm/pkg/jbod"
)

// Driver errors. Every failure of the driver is one of these or a
// *DeviceError.
var (
	// ErrNotMounted is returned by I/O and Unmount on an unmounted driver.
	ErrNotMounted = errors.New("mdadm: not mounted")

	// ErrAlreadyMounted is returned by Mount on a mounted driver.
	ErrAlreadyMounted = errors.New("mdadm: already mounted")

	// ErrWriteNotPermitted is returned by Write without write permission.
	ErrWriteNotPermitted = errors.New("mdadm: write permission not granted")

	// ErrTooLarge is returned when a single call exceeds the maximum I/O size.
	ErrTooLarge = errors.New("mdadm: transfer exceeds maximum I/O size")

	// ErrShortBuffer is returned when the caller buffer is nil or shorter
	// than the requested length.
	ErrShortBuffer = errors.New("mdadm: buffer shorter than transfer length")

	// ErrOutOfBounds is returned when a range runs past the end of the array.
	ErrOutOfBounds = errors.New("mdadm: address range out of bounds")
)

// DeviceError reports a failed device operation.
type DeviceError struct {
	Word jbod.ControlWord
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("mdadm: %s failed: %v", e.Word, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
