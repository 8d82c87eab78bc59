package jbod

import (
	"fmt"
	"path/filepath"
	"sync"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
	"github.com/spf13/afero"
)

// assert that Array implements the Device interface
var _ Device = (*Array)(nil)

// Array is a Device backed by one image file per disk. It keeps the
// device side of the protocol: its own mount and write-protect state and
// a disk/block cursor that only seek commands move.
type Array struct {
	geo    Geometry
	disks  []*diskImage
	logger log.Logger

	mutex    sync.Mutex
	mounted  bool
	writable bool
	disk     uint32
	block    uint32
}

// DiskImageName returns the file name used for disk index i.
func DiskImageName(i uint32) string {
	return fmt.Sprintf("disk-%02d.img", i)
}

// OpenArray opens, creating if needed, the disk images of geo under dir.
// A nil logger disables logging.
func OpenArray(fs afero.Fs, dir string, geo Geometry, logger log.Logger) (*Array, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = lognoop.NewNoOpLogger()
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	a := &Array{
		geo:    geo,
		disks:  make([]*diskImage, 0, geo.NumDisks),
		logger: logger.With("component", "jbod"),
	}
	for i := uint32(0); i < geo.NumDisks; i++ {
		img, err := openDiskImage(fs, filepath.Join(dir, DiskImageName(i)), geo.DiskSize, geo.BlockSize)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.disks = append(a.disks, img)
	}

	a.logger.Debug("Array opened", "dir", dir, "disks", geo.NumDisks, "diskSize", geo.DiskSize)
	return a, nil
}

// Geometry returns the layout the array was opened with.
func (a *Array) Geometry() Geometry {
	return a.geo
}

// Operation executes one packed control word.
func (a *Array) Operation(op uint32, block []byte) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	w := Unpack(op)

	switch w.Command {
	case CommandMount:
		if a.mounted {
			return StatusAlreadyMounted
		}
		a.mounted = true
		a.disk, a.block = 0, 0
		return nil
	case CommandUnmount:
		if !a.mounted {
			return StatusNotMounted
		}
		a.mounted = false
		return a.sync()
	}

	if !a.mounted {
		return StatusNotMounted
	}

	switch w.Command {
	case CommandSeekToDisk:
		if w.Disk >= a.geo.NumDisks {
			return StatusInvalidDisk
		}
		a.disk = w.Disk
	case CommandSeekToBlock:
		if w.Block >= a.geo.BlocksPerDisk() {
			return StatusInvalidBlock
		}
		a.block = w.Block
	case CommandReadBlock:
		if uint32(len(block)) != a.geo.BlockSize {
			return StatusBadBuffer
		}
		if err := a.disks[a.disk].readBlock(a.block, block); err != nil {
			a.logger.Error("Block read failed", "disk", a.disk, "block", a.block, "err", err)
			return fmt.Errorf("%w: %w", StatusIO, err)
		}
	case CommandWriteBlock:
		if !a.writable {
			return StatusWriteProtected
		}
		if uint32(len(block)) != a.geo.BlockSize {
			return StatusBadBuffer
		}
		if err := a.disks[a.disk].writeBlock(a.block, block); err != nil {
			a.logger.Error("Block write failed", "disk", a.disk, "block", a.block, "err", err)
			return fmt.Errorf("%w: %w", StatusIO, err)
		}
	case CommandWritePermission:
		a.writable = true
	case CommandRevokeWritePermission:
		a.writable = false
	default:
		return StatusInvalidCommand
	}
	return nil
}

func (a *Array) sync() error {
	for i, d := range a.disks {
		if err := d.sync(); err != nil {
			a.logger.Error("Disk sync failed", "disk", i, "err", err)
			return fmt.Errorf("%w: %w", StatusIO, err)
		}
	}
	return nil
}

// Close flushes and closes every disk image.
func (a *Array) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var first error
	for _, d := range a.disks {
		if err := d.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
