// Package volfuse mounts an mdadm volume as a FUSE filesystem holding a
// single file.
package volfuse

import (
	"context"
	"errors"
	"io"
	"syscall"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/OffBroadway/mdadm/pkg/mdadm"
)

// Root is the directory node at the mount point.
type Root struct {
	fs.Inode
	vol    *mdadm.Volume
	logger log.Logger
}

var _ = (fs.NodeOnAdder)((*Root)(nil))

// NewRoot returns the root node for vol. A nil logger disables logging.
func NewRoot(vol *mdadm.Volume, logger log.Logger) *Root {
	if logger == nil {
		logger = lognoop.NewNoOpLogger()
	}
	return &Root{vol: vol, logger: logger}
}

func (r *Root) OnAdd(ctx context.Context) {
	p := &r.Inode
	child := p.NewPersistentInode(ctx, &volumeNode{vol: r.vol, logger: r.logger}, fs.StableAttr{
		Mode: fuse.S_IFREG,
		Ino:  2,
	})
	p.AddChild(mdadm.VolumeFileName, child, true)
}

// volumeNode is the volume image file.
type volumeNode struct {
	fs.Inode
	vol    *mdadm.Volume
	logger log.Logger
}

var _ = (fs.NodeReader)((*volumeNode)(nil))
var _ = (fs.NodeWriter)((*volumeNode)(nil))
var _ = (fs.NodeOpener)((*volumeNode)(nil))
var _ = (fs.NodeGetattrer)((*volumeNode)(nil))

func (n *volumeNode) Open(ctx context.Context, openFlags uint32) (fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	if openFlags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 && !n.vol.Writable() {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *volumeNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	c, err := n.vol.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		n.logger.Error("FUSE read failed", "off", off, "len", len(dest), "err", err)
		return nil, errno(err)
	}
	return fuse.ReadResultData(dest[:c]), 0
}

func (n *volumeNode) Write(ctx context.Context, fh fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	c, err := n.vol.WriteAt(data, off)
	if err != nil {
		n.logger.Error("FUSE write failed", "off", off, "len", len(data), "err", err)
		return uint32(c), errno(err)
	}
	return uint32(c), 0
}

func (n *volumeNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Size = uint64(n.vol.Size())
	out.Mode = fuse.S_IFREG | 0o444
	if n.vol.Writable() {
		out.Mode = fuse.S_IFREG | 0o644
	}
	return 0
}

// errno maps driver errors to the closest errno.
func errno(err error) syscall.Errno {
	switch {
	case errors.Is(err, mdadm.ErrWriteNotPermitted):
		return syscall.EROFS
	case errors.Is(err, mdadm.ErrOutOfBounds):
		return syscall.EFBIG
	case errors.Is(err, mdadm.ErrNotMounted):
		return syscall.ENODEV
	default:
		return syscall.EIO
	}
}

// Mount serves vol at dir until the returned server is unmounted.
func Mount(dir string, vol *mdadm.Volume, logger log.Logger, debug bool) (*fuse.Server, error) {
	opts := &fs.Options{}
	opts.Debug = debug
	opts.FsName = "mdadm"
	return fs.Mount(dir, NewRoot(vol, logger), opts)
}
