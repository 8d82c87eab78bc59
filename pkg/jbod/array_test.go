package jbod

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

var testGeometry = Geometry{NumDisks: 4, DiskSize: 512, BlockSize: 256, MaxIOSize: 1024}

func op(c Command, disk, block uint32) uint32 {
	return ControlWord{Command: c, Disk: disk, Block: block}.Pack()
}

func newTestArray(t *testing.T, fs afero.Fs) *Array {
	t.Helper()
	a, err := OpenArray(fs, "/array", testGeometry, nil)
	if err != nil {
		t.Fatalf("OpenArray() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenArray_CreatesImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	newTestArray(t, fs)

	for i := uint32(0); i < testGeometry.NumDisks; i++ {
		info, err := fs.Stat("/array/" + DiskImageName(i))
		if err != nil {
			t.Fatalf("Stat(disk %d) error = %v", i, err)
		}
		if info.Size() != int64(testGeometry.DiskSize) {
			t.Errorf("disk %d size = %d, want %d", i, info.Size(), testGeometry.DiskSize)
		}
	}
}

func TestOpenArray_InvalidGeometry(t *testing.T) {
	_, err := OpenArray(afero.NewMemMapFs(), "/array", Geometry{}, nil)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("OpenArray() error = %v, want %v", err, ErrInvalidGeometry)
	}
}

func TestArray_MountState(t *testing.T) {
	a := newTestArray(t, afero.NewMemMapFs())

	if err := a.Operation(op(CommandSeekToDisk, 0, 0), nil); !errors.Is(err, StatusNotMounted) {
		t.Errorf("seek while unmounted error = %v, want %v", err, StatusNotMounted)
	}
	if err := a.Operation(op(CommandUnmount, 0, 0), nil); !errors.Is(err, StatusNotMounted) {
		t.Errorf("unmount while unmounted error = %v, want %v", err, StatusNotMounted)
	}
	if err := a.Operation(op(CommandMount, 0, 0), nil); err != nil {
		t.Fatalf("mount error = %v", err)
	}
	if err := a.Operation(op(CommandMount, 0, 0), nil); !errors.Is(err, StatusAlreadyMounted) {
		t.Errorf("second mount error = %v, want %v", err, StatusAlreadyMounted)
	}
	if err := a.Operation(op(CommandUnmount, 0, 0), nil); err != nil {
		t.Errorf("unmount error = %v", err)
	}
}

func TestArray_Commands(t *testing.T) {
	a := newTestArray(t, afero.NewMemMapFs())
	if err := a.Operation(op(CommandMount, 0, 0), nil); err != nil {
		t.Fatalf("mount error = %v", err)
	}

	block := make([]byte, testGeometry.BlockSize)
	tests := []struct {
		name  string
		op    uint32
		block []byte
		want  error
	}{
		{"seek disk", op(CommandSeekToDisk, 3, 0), nil, nil},
		{"seek disk out of range", op(CommandSeekToDisk, 4, 0), nil, StatusInvalidDisk},
		{"seek block", op(CommandSeekToBlock, 0, 1), nil, nil},
		{"seek block out of range", op(CommandSeekToBlock, 0, 2), nil, StatusInvalidBlock},
		{"read", op(CommandReadBlock, 0, 0), block, nil},
		{"read short buffer", op(CommandReadBlock, 0, 0), block[:10], StatusBadBuffer},
		{"write protected", op(CommandWriteBlock, 0, 0), block, StatusWriteProtected},
		{"unknown command", op(Command(50), 0, 0), nil, StatusInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Operation(tt.op, tt.block)
			if tt.want == nil && err != nil {
				t.Errorf("Operation() error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Operation() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestArray_ReadWriteBlock(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newTestArray(t, fs)

	for _, o := range []uint32{
		op(CommandMount, 0, 0),
		op(CommandWritePermission, 0, 0),
		op(CommandSeekToDisk, 2, 0),
		op(CommandSeekToBlock, 0, 1),
	} {
		if err := a.Operation(o, nil); err != nil {
			t.Fatalf("Operation(%v) error = %v", Unpack(o), err)
		}
	}

	data := bytes.Repeat([]byte{0xAB}, int(testGeometry.BlockSize))
	if err := a.Operation(op(CommandWriteBlock, 0, 0), data); err != nil {
		t.Fatalf("write error = %v", err)
	}

	// the cursor stays on the block after a transfer
	got := make([]byte, testGeometry.BlockSize)
	if err := a.Operation(op(CommandReadBlock, 0, 0), got); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back %x, want %x", got[:8], data[:8])
	}

	if err := a.Operation(op(CommandRevokeWritePermission, 0, 0), nil); err != nil {
		t.Fatalf("revoke error = %v", err)
	}
	if err := a.Operation(op(CommandWriteBlock, 0, 0), data); !errors.Is(err, StatusWriteProtected) {
		t.Errorf("write after revoke error = %v, want %v", err, StatusWriteProtected)
	}
	if err := a.Operation(op(CommandUnmount, 0, 0), nil); err != nil {
		t.Fatalf("unmount error = %v", err)
	}
	a.Close()

	// contents survive reopening the images
	raw, err := afero.ReadFile(fs, "/array/"+DiskImageName(2))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(raw[256:512], data) || raw[0] != 0 {
		t.Errorf("disk image does not hold the written block")
	}
}

func TestTracer(t *testing.T) {
	a := newTestArray(t, afero.NewMemMapFs())
	tr := NewTracer(a, nil)

	tr.Operation(op(CommandMount, 0, 0), nil)
	tr.Operation(op(CommandSeekToDisk, 9, 0), nil)

	if tr.Calls() != 2 {
		t.Fatalf("Calls() = %d, want 2", tr.Calls())
	}
	h := tr.History()
	if h[0].Command != CommandMount || h[1].Command != CommandSeekToDisk || h[1].Disk != 9 {
		t.Errorf("History() = %v", h)
	}

	tr.Reset()
	if tr.Calls() != 0 {
		t.Errorf("Calls() after Reset = %d", tr.Calls())
	}
}
