package jbod

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// diskImage is one disk of the array stored as a file of exactly size bytes.
type diskImage struct {
	file      afero.File
	size      int64
	blockSize int64
}

// openDiskImage opens or creates the image at path and extends it to size
// bytes. Existing contents are kept.
func openDiskImage(fs afero.Fs, path string, size, blockSize uint32) (*diskImage, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size %s: %w", path, err)
		}
	}

	return &diskImage{file: f, size: int64(size), blockSize: int64(blockSize)}, nil
}

// readBlock reads block index into buff.
func (img *diskImage) readBlock(block uint32, buff []byte) error {
	if img.file == nil {
		return fmt.Errorf("file is not open")
	}

	offset := int64(block) * img.blockSize
	if int64(len(buff)) != img.blockSize {
		return fmt.Errorf("buffer size %d, want %d", len(buff), img.blockSize)
	}
	if offset+img.blockSize > img.size {
		return fmt.Errorf("block %d past end of image", block)
	}

	n, err := img.file.ReadAt(buff, offset)
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	if int64(n) != img.blockSize {
		return fmt.Errorf("short read: expected %d bytes, got %d", img.blockSize, n)
	}
	return nil
}

// writeBlock writes buff to block index.
func (img *diskImage) writeBlock(block uint32, buff []byte) error {
	if img.file == nil {
		return fmt.Errorf("file is not open")
	}

	offset := int64(block) * img.blockSize
	if int64(len(buff)) != img.blockSize {
		return fmt.Errorf("buffer size %d, want %d", len(buff), img.blockSize)
	}
	if offset+img.blockSize > img.size {
		return fmt.Errorf("block %d past end of image", block)
	}

	n, err := img.file.WriteAt(buff, offset)
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	if int64(n) != img.blockSize {
		return fmt.Errorf("short write: expected %d bytes, wrote %d", img.blockSize, n)
	}
	return nil
}

func (img *diskImage) sync() error {
	if img.file == nil {
		return nil
	}
	return img.file.Sync()
}

// close should be called when the array is done with the image.
func (img *diskImage) close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	return err
}
