package mdadm

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// VolumeFileName is the single file a VolumeFs exposes.
const VolumeFileName = "volume.img"

// FileInfo describes the volume file or the root directory.
type FileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
	mode    os.FileMode
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) IsDir() bool        { return fi.isDir }
func (fi FileInfo) ModTime() time.Time { return fi.modTime }
func (fi FileInfo) Mode() os.FileMode  { return fi.mode }
func (fi FileInfo) Sys() interface{}   { return nil }

var _ os.FileInfo = FileInfo{}

// VolumeFs is a read/write afero.Fs holding a root directory with one
// fixed-size file, VolumeFileName, whose bytes are the volume.
type VolumeFs struct {
	vol *Volume

	mutex   sync.Mutex
	modTime time.Time
}

var _ afero.Fs = (*VolumeFs)(nil)

// NewVolumeFs exposes vol as a filesystem.
func NewVolumeFs(vol *Volume) *VolumeFs {
	return &VolumeFs{vol: vol, modTime: time.Now()}
}

func (f *VolumeFs) Name() string {
	return "mdadm"
}

// resolve maps a name to "/" or "/volume.img"; anything else is "".
func resolve(name string) string {
	clean := path.Clean("/" + filepath.ToSlash(name))
	switch clean {
	case "/", "/" + VolumeFileName:
		return clean
	}
	return ""
}

func (f *VolumeFs) touch() {
	f.mutex.Lock()
	f.modTime = time.Now()
	f.mutex.Unlock()
}

func (f *VolumeFs) info(clean string) FileInfo {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if clean == "/" {
		return FileInfo{name: "/", isDir: true, modTime: f.modTime, mode: os.ModeDir | 0o755}
	}
	mode := os.FileMode(0o444)
	if f.vol.Writable() {
		mode = 0o644
	}
	return FileInfo{name: VolumeFileName, size: f.vol.Size(), modTime: f.modTime, mode: mode}
}

func (f *VolumeFs) Stat(name string) (os.FileInfo, error) {
	clean := resolve(name)
	if clean == "" {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return f.info(clean), nil
}

func (f *VolumeFs) Open(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the root or the volume file. O_CREATE and O_TRUNC are
// accepted and ignored since the volume always exists with a fixed size.
func (f *VolumeFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	switch resolve(name) {
	case "/":
		if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, &os.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
		}
		return &rootDir{fs: f}, nil
	case "/" + VolumeFileName:
		return &VolumeFile{fs: f, name: name, flag: flag}, nil
	}
	if flag&os.O_CREATE != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
}

func (f *VolumeFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (f *VolumeFs) Mkdir(name string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrPermission}
}

func (f *VolumeFs) MkdirAll(name string, perm os.FileMode) error {
	if resolve(name) == "/" {
		return nil
	}
	return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrPermission}
}

func (f *VolumeFs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
}

func (f *VolumeFs) RemoveAll(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
}

func (f *VolumeFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

// Chmod, Chown and Chtimes are accepted for existing names and do nothing;
// clients uploading the image call them afterwards.
func (f *VolumeFs) Chmod(name string, mode os.FileMode) error {
	return f.exists("chmod", name)
}

func (f *VolumeFs) Chown(name string, uid, gid int) error {
	return f.exists("chown", name)
}

func (f *VolumeFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return f.exists("chtimes", name)
}

func (f *VolumeFs) exists(op, name string) error {
	if resolve(name) == "" {
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	}
	return nil
}

// VolumeFile is an open handle on the volume with its own offset.
type VolumeFile struct {
	fs   *VolumeFs
	name string
	flag int

	mutex  sync.Mutex
	offset int64
	closed bool
}

var _ afero.File = (*VolumeFile)(nil)

func (vf *VolumeFile) check(op string, write bool) error {
	if vf.closed {
		return &os.PathError{Op: op, Path: vf.name, Err: os.ErrClosed}
	}
	if write && vf.flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return &os.PathError{Op: op, Path: vf.name, Err: os.ErrPermission}
	}
	return nil
}

func (vf *VolumeFile) Name() string {
	return vf.name
}

func (vf *VolumeFile) Close() error {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if vf.closed {
		return &os.PathError{Op: "close", Path: vf.name, Err: os.ErrClosed}
	}
	vf.closed = true
	return nil
}

func (vf *VolumeFile) Read(p []byte) (int, error) {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if err := vf.check("read", false); err != nil {
		return 0, err
	}
	n, err := vf.fs.vol.ReadAt(p, vf.offset)
	vf.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (vf *VolumeFile) ReadAt(p []byte, off int64) (int, error) {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if err := vf.check("read", false); err != nil {
		return 0, err
	}
	return vf.fs.vol.ReadAt(p, off)
}

func (vf *VolumeFile) Write(p []byte) (int, error) {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if err := vf.check("write", true); err != nil {
		return 0, err
	}
	n, err := vf.fs.vol.WriteAt(p, vf.offset)
	vf.offset += int64(n)
	if n > 0 {
		vf.fs.touch()
	}
	return n, err
}

func (vf *VolumeFile) WriteAt(p []byte, off int64) (int, error) {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if err := vf.check("write", true); err != nil {
		return 0, err
	}
	n, err := vf.fs.vol.WriteAt(p, off)
	if n > 0 {
		vf.fs.touch()
	}
	return n, err
}

func (vf *VolumeFile) WriteString(s string) (int, error) {
	return vf.Write([]byte(s))
}

func (vf *VolumeFile) Seek(offset int64, whence int) (int64, error) {
	vf.mutex.Lock()
	defer vf.mutex.Unlock()

	if err := vf.check("seek", false); err != nil {
		return 0, err
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = vf.offset + offset
	case io.SeekEnd:
		abs = vf.fs.vol.Size() + offset
	default:
		return 0, &os.PathError{Op: "seek", Path: vf.name, Err: os.ErrInvalid}
	}
	if abs < 0 {
		return 0, &os.PathError{Op: "seek", Path: vf.name, Err: os.ErrInvalid}
	}
	vf.offset = abs
	return abs, nil
}

func (vf *VolumeFile) Stat() (os.FileInfo, error) {
	return vf.fs.info("/" + VolumeFileName), nil
}

func (vf *VolumeFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: vf.name, Err: syscall.ENOTDIR}
}

func (vf *VolumeFile) Readdirnames(n int) ([]string, error) {
	return nil, &os.PathError{Op: "readdir", Path: vf.name, Err: syscall.ENOTDIR}
}

func (vf *VolumeFile) Sync() error {
	return nil
}

// Truncate only accepts the current size.
func (vf *VolumeFile) Truncate(size int64) error {
	if size != vf.fs.vol.Size() {
		return &os.PathError{Op: "truncate", Path: vf.name, Err: os.ErrPermission}
	}
	return nil
}

// rootDir is the directory handle returned for "/".
type rootDir struct {
	fs     *VolumeFs
	listed bool
}

var _ afero.File = (*rootDir)(nil)

func (d *rootDir) Name() string                                 { return "/" }
func (d *rootDir) Close() error                                 { return nil }
func (d *rootDir) Sync() error                                  { return nil }
func (d *rootDir) Stat() (os.FileInfo, error)                   { return d.fs.info("/"), nil }
func (d *rootDir) Read(p []byte) (int, error)                   { return 0, d.isDir("read") }
func (d *rootDir) ReadAt(p []byte, off int64) (int, error)      { return 0, d.isDir("read") }
func (d *rootDir) Write(p []byte) (int, error)                  { return 0, d.isDir("write") }
func (d *rootDir) WriteAt(p []byte, off int64) (int, error)     { return 0, d.isDir("write") }
func (d *rootDir) WriteString(s string) (int, error)            { return 0, d.isDir("write") }
func (d *rootDir) Seek(offset int64, whence int) (int64, error) { return 0, nil }
func (d *rootDir) Truncate(size int64) error                    { return d.isDir("truncate") }

func (d *rootDir) isDir(op string) error {
	return &os.PathError{Op: op, Path: "/", Err: syscall.EISDIR}
}

// Readdir lists the volume file once. With count > 0 a second call
// reports io.EOF.
func (d *rootDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.listed {
		if count > 0 {
			return nil, io.EOF
		}
		return []os.FileInfo{}, nil
	}
	d.listed = true
	return []os.FileInfo{d.fs.info("/" + VolumeFileName)}, nil
}

func (d *rootDir) Readdirnames(n int) ([]string, error) {
	infos, err := d.Readdir(n)
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, err
}

// VolumeIO exposes a VolumeFs as an io/fs.FS.
type VolumeIO struct {
	*VolumeFs
}

var _ fs.FS = (*VolumeIO)(nil)

func (f *VolumeIO) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return f.VolumeFs.Open(name)
}

// AsIO returns f as an io/fs.FS.
func AsIO(f *VolumeFs) *VolumeIO {
	return &VolumeIO{f}
}
