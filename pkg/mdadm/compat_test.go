package mdadm

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func newTestFs(t *testing.T) *VolumeFs {
	t.Helper()
	return NewVolumeFs(NewVolume(newMountedRig(t).driver))
}

func TestVolumeFs_Listing(t *testing.T) {
	vfs := newTestFs(t)

	names, err := afero.ReadDir(vfs, "/")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(names) != 1 || names[0].Name() != VolumeFileName || names[0].Size() != 2048 {
		t.Errorf("ReadDir() = %v", names)
	}

	if _, err := vfs.Stat("/other"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat(/other) error = %v, want %v", err, os.ErrNotExist)
	}
	if _, err := vfs.Create("/new.txt"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("Create() error = %v, want %v", err, os.ErrPermission)
	}
	if err := vfs.Remove(VolumeFileName); !errors.Is(err, os.ErrPermission) {
		t.Errorf("Remove() error = %v, want %v", err, os.ErrPermission)
	}
}

func TestVolumeFs_ReadWrite(t *testing.T) {
	vfs := newTestFs(t)

	f, err := vfs.OpenFile(VolumeFileName, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	if _, err := f.Seek(1000, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if _, err := f.WriteString("hello, array"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}

	got := make([]byte, 12)
	if _, err := f.ReadAt(got, 1000); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if string(got) != "hello, array" {
		t.Errorf("ReadAt() = %q", got)
	}

	ro, err := vfs.Open("/" + VolumeFileName)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ro.Close()
	if _, err := ro.Write([]byte("x")); !errors.Is(err, os.ErrPermission) {
		t.Errorf("Write() on read-only handle error = %v, want %v", err, os.ErrPermission)
	}

	all, err := io.ReadAll(ro)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(all) != 2048 || !bytes.Equal(all[1000:1012], []byte("hello, array")) {
		t.Errorf("ReadAll() returned %d bytes", len(all))
	}
}

func TestAsIO(t *testing.T) {
	fsys := AsIO(newTestFs(t))

	data, err := fs.ReadFile(fsys, VolumeFileName)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(data) != 2048 {
		t.Errorf("ReadFile() returned %d bytes", len(data))
	}
	if _, err := fsys.Open("/" + VolumeFileName); err == nil {
		t.Error("Open() accepted a rooted path")
	}
}
