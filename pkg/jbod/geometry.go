package jbod

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when a Geometry cannot be addressed by the
// control word or is internally inconsistent.
var ErrInvalidGeometry = errors.New("invalid geometry")

// maxAddressable is the span of a 32-bit flat address.
const maxAddressable = 1 << 32

// Geometry describes the fixed layout of a disk array.
type Geometry struct {
	NumDisks  uint32
	DiskSize  uint32
	BlockSize uint32
	MaxIOSize uint32
}

// DefaultGeometry is a 16 disk array of 64 KiB disks with 256 byte blocks.
var DefaultGeometry = Geometry{
	NumDisks:  16,
	DiskSize:  65536,
	BlockSize: 256,
	MaxIOSize: 1024,
}

// BlocksPerDisk returns the number of blocks on each disk.
func (g Geometry) BlocksPerDisk() uint32 {
	return g.DiskSize / g.BlockSize
}

// Size returns the total addressable bytes across all disks.
func (g Geometry) Size() uint64 {
	return uint64(g.NumDisks) * uint64(g.DiskSize)
}

// Validate checks that every disk and block index of g fits in a control
// word so the encoder never has to truncate.
func (g Geometry) Validate() error {
	switch {
	case g.NumDisks == 0 || g.DiskSize == 0 || g.BlockSize == 0 || g.MaxIOSize == 0:
		return fmt.Errorf("%w: zero dimension in %+v", ErrInvalidGeometry, g)
	case g.DiskSize%g.BlockSize != 0:
		return fmt.Errorf("%w: disk size %d is not a multiple of block size %d", ErrInvalidGeometry, g.DiskSize, g.BlockSize)
	case g.NumDisks > MaxDisks:
		return fmt.Errorf("%w: %d disks exceeds %d", ErrInvalidGeometry, g.NumDisks, MaxDisks)
	case g.BlocksPerDisk() > MaxBlocksPerDisk:
		return fmt.Errorf("%w: %d blocks per disk exceeds %d", ErrInvalidGeometry, g.BlocksPerDisk(), MaxBlocksPerDisk)
	case g.Size() > maxAddressable:
		return fmt.Errorf("%w: %d bytes exceeds the 32-bit address space", ErrInvalidGeometry, g.Size())
	}
	return nil
}
