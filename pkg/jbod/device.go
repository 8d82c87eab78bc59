package jbod

// Device is the multi-disk array as seen by a driver. op is a packed
// ControlWord. block is an output buffer for CommandReadBlock, an input
// buffer for CommandWriteBlock and is ignored otherwise; when used it must
// be exactly one block long.
type Device interface {
	Operation(op uint32, block []byte) error
}

// Status is the failure code reported by a device operation.
type Status uint

const (
	StatusOK Status = iota
	StatusNotMounted
	StatusAlreadyMounted
	StatusInvalidDisk
	StatusInvalidBlock
	StatusInvalidCommand
	StatusWriteProtected
	StatusBadBuffer
	StatusIO
)

func (s Status) Error() string {
	var msg string
	switch s {
	case StatusNotMounted:
		msg = "array is not mounted"
	case StatusAlreadyMounted:
		msg = "array is already mounted"
	case StatusInvalidDisk:
		msg = "disk index out of range"
	case StatusInvalidBlock:
		msg = "block index out of range"
	case StatusInvalidCommand:
		msg = "unknown command"
	case StatusWriteProtected:
		msg = "write permission not granted"
	case StatusBadBuffer:
		msg = "block buffer has the wrong size"
	case StatusIO:
		msg = "disk image I/O failed"
	default:
		msg = "unknown status"
	}
	return "jbod: " + msg
}
