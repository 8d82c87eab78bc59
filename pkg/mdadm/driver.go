package mdadm

import (
	"sync"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"

	"github.com/OffBroadway/mdadm/pkg/jbod"
)

// Driver presents the disks of a jbod.Device as one flat byte range.
// It owns the mount and write-permission state for its device; every
// method is serialised by an internal mutex.
type Driver struct {
	dev    jbod.Device
	geo    jbod.Geometry
	logger log.Logger

	mutex    sync.Mutex
	mounted  bool
	writable bool
}

// New creates an unmounted driver for dev laid out as geo. A nil logger
// disables logging.
func New(dev jbod.Device, geo jbod.Geometry, logger log.Logger) (*Driver, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = lognoop.NewNoOpLogger()
	}
	return &Driver{
		dev:    dev,
		geo:    geo,
		logger: logger.With("component", "mdadm"),
	}, nil
}

// Geometry returns the layout the driver addresses.
func (d *Driver) Geometry() jbod.Geometry {
	return d.geo
}

// Mounted reports whether Mount has succeeded without a later Unmount.
func (d *Driver) Mounted() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.mounted
}

// Writable reports whether write permission is currently granted.
func (d *Driver) Writable() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.writable
}

// exec packs w and issues it to the device.
func (d *Driver) exec(w jbod.ControlWord, block []byte) error {
	if err := d.dev.Operation(w.Pack(), block); err != nil {
		d.logger.Warn("Device operation failed", "op", w.String(), "err", err)
		return &DeviceError{Word: w, Err: err}
	}
	return nil
}

// Mount mounts the array. The local state changes only if the device
// accepts the command.
func (d *Driver) Mount() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.mounted {
		return ErrAlreadyMounted
	}
	if err := d.exec(jbod.ControlWord{Command: jbod.CommandMount}, nil); err != nil {
		return err
	}
	d.mounted = true
	d.logger.Info("Mounted", "disks", d.geo.NumDisks, "size", d.geo.Size())
	return nil
}

// Unmount unmounts the array.
func (d *Driver) Unmount() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.mounted {
		return ErrNotMounted
	}
	if err := d.exec(jbod.ControlWord{Command: jbod.CommandUnmount}, nil); err != nil {
		return err
	}
	d.mounted = false
	d.logger.Info("Unmounted")
	return nil
}

// GrantWritePermission asks the device for write permission. It is not
// gated on the mount state; the device decides.
func (d *Driver) GrantWritePermission() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.exec(jbod.ControlWord{Command: jbod.CommandWritePermission}, nil); err != nil {
		return err
	}
	d.writable = true
	d.logger.Info("Write permission granted")
	return nil
}

// RevokeWritePermission drops write permission.
func (d *Driver) RevokeWritePermission() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.exec(jbod.ControlWord{Command: jbod.CommandRevokeWritePermission}, nil); err != nil {
		return err
	}
	d.writable = false
	d.logger.Info("Write permission revoked")
	return nil
}

// Read copies length bytes starting at flat address addr into buf.
//
// A zero length with a nil buf succeeds without touching the device. On a
// device failure the returned count is the number of bytes copied before
// the failing block; the call has still failed.
func (d *Driver) Read(addr, length uint32, buf []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.mounted {
		return 0, ErrNotMounted
	}
	if skip, err := d.validate(addr, length, buf); skip || err != nil {
		return 0, err
	}
	return d.transfer(addr, buf[:length], false)
}

// Write stores length bytes of buf starting at flat address addr. Blocks
// only partly covered keep their other bytes. Failure reporting is the same
// as for Read; blocks written before a failure are not rolled back.
func (d *Driver) Write(addr, length uint32, buf []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.mounted {
		return 0, ErrNotMounted
	}
	if !d.writable {
		return 0, ErrWriteNotPermitted
	}
	if skip, err := d.validate(addr, length, buf); skip || err != nil {
		return 0, err
	}
	return d.transfer(addr, buf[:length], true)
}

// validate checks the arguments shared by Read and Write. skip is true for
// the empty request, which succeeds without I/O.
func (d *Driver) validate(addr, length uint32, buf []byte) (skip bool, err error) {
	switch {
	case length == 0 && buf == nil:
		return true, nil
	case length > d.geo.MaxIOSize:
		return false, ErrTooLarge
	case buf == nil || uint32(len(buf)) < length:
		return false, ErrShortBuffer
	case !inBounds(d.geo, addr, length):
		return false, ErrOutOfBounds
	}
	return length == 0, nil
}

// transfer moves buf to or from the array one block at a time. Each
// block is read whole into a scratch buffer; writes patch the scratch
// buffer and store it back.
func (d *Driver) transfer(addr uint32, buf []byte, write bool) (int, error) {
	scratch := make([]byte, d.geo.BlockSize)
	done := 0

	for done < len(buf) {
		loc := Translate(d.geo, addr)
		chunk := min(uint32(len(buf)-done), d.geo.BlockSize-loc.Offset)

		if err := d.exec(jbod.ControlWord{Command: jbod.CommandSeekToDisk, Disk: loc.Disk}, nil); err != nil {
			return done, err
		}
		if err := d.exec(jbod.ControlWord{Command: jbod.CommandSeekToBlock, Block: loc.Block}, nil); err != nil {
			return done, err
		}
		if err := d.exec(jbod.ControlWord{Command: jbod.CommandReadBlock}, scratch); err != nil {
			return done, err
		}

		if write {
			copy(scratch[loc.Offset:loc.Offset+chunk], buf[done:])
			if err := d.exec(jbod.ControlWord{Command: jbod.CommandWriteBlock}, scratch); err != nil {
				return done, err
			}
		} else {
			copy(buf[done:], scratch[loc.Offset:loc.Offset+chunk])
		}

		addr += chunk
		done += int(chunk)
	}

	return done, nil
}
