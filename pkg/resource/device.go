package resource

import (
	"os"

	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
	"golang.org/x/sys/unix"
)

// MemoryBlockDevice is a platform.BlockDevice backed by a byte slice,
// used for tests and RAM-disk-style resource files.
type MemoryBlockDevice struct {
	data []byte
}

// NewMemoryBlockDevice creates a device with the given total size in
// bytes, rounded up to a whole number of blocks.
func NewMemoryBlockDevice(size int) *MemoryBlockDevice {
	blocks := (size + platform.BlockSize - 1) / platform.BlockSize
	return &MemoryBlockDevice{data: make([]byte, blocks*platform.BlockSize)}
}

func (d *MemoryBlockDevice) ReadBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr {
	start := int64(startBlock) * platform.BlockSize
	n := int64(count) * platform.BlockSize
	if start+n > int64(len(d.data)) {
		return toolboxerr.ResIOErr
	}
	copy(buf, d.data[start:start+n])
	return toolboxerr.NoErr
}

func (d *MemoryBlockDevice) WriteBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr {
	start := int64(startBlock) * platform.BlockSize
	n := int64(count) * platform.BlockSize
	if start+n > int64(len(d.data)) {
		grown := make([]byte, start+n)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[start:start+n], buf[:n])
	return toolboxerr.NoErr
}

// FileBlockDevice is the reference platform.BlockDevice backend,
// reading/writing 512-byte blocks against a real file via
// golang.org/x/sys/unix pread/pwrite.
type FileBlockDevice struct {
	f *os.File
}

// OpenFileBlockDevice opens path for block I/O, creating it if
// necessary.
func OpenFileBlockDevice(path string) (*FileBlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileBlockDevice{f: f}, nil
}

func (d *FileBlockDevice) Close() error { return d.f.Close() }

func (d *FileBlockDevice) ReadBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr {
	off := int64(startBlock) * platform.BlockSize
	n := int(count) * platform.BlockSize
	read := 0
	for read < n {
		m, err := unix.Pread(int(d.f.Fd()), buf[read:n], off+int64(read))
		if err != nil {
			return toolboxerr.ResIOErr
		}
		if m == 0 {
			break
		}
		read += m
	}
	return toolboxerr.NoErr
}

func (d *FileBlockDevice) WriteBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr {
	off := int64(startBlock) * platform.BlockSize
	n := int(count) * platform.BlockSize
	written := 0
	for written < n {
		m, err := unix.Pwrite(int(d.f.Fd()), buf[written:n], off+int64(written))
		if err != nil {
			return toolboxerr.ResIOErr
		}
		written += m
	}
	return toolboxerr.NoErr
}

// deviceReaderWriter adapts a platform.BlockDevice into io.ReaderAt
// and io.WriterAt, rounding arbitrary byte ranges out to whole blocks.
type deviceReaderWriter struct {
	dev        platform.BlockDevice
	driveIndex int
}

func (d *deviceReaderWriter) ReadAt(p []byte, off int64) (int, error) {
	startBlock := uint32(off / platform.BlockSize)
	endBlock := uint32((off+int64(len(p))+platform.BlockSize-1)/platform.BlockSize)
	count := endBlock - startBlock
	buf := make([]byte, count*platform.BlockSize)
	if err := d.dev.ReadBlocks(d.driveIndex, startBlock, count, buf); err != toolboxerr.NoErr {
		return 0, err
	}
	skip := off - int64(startBlock)*platform.BlockSize
	n := copy(p, buf[skip:])
	return n, nil
}

func (d *deviceReaderWriter) WriteAt(p []byte, off int64) (int, error) {
	startBlock := uint32(off / platform.BlockSize)
	endBlock := uint32((off+int64(len(p))+platform.BlockSize-1)/platform.BlockSize)
	count := endBlock - startBlock

	buf := make([]byte, count*platform.BlockSize)
	// Read-modify-write to preserve bytes outside [off, off+len(p)).
	_ = d.dev.ReadBlocks(d.driveIndex, startBlock, count, buf)
	skip := off - int64(startBlock)*platform.BlockSize
	copy(buf[skip:], p)

	if err := d.dev.WriteBlocks(d.driveIndex, startBlock, count, buf); err != toolboxerr.NoErr {
		return 0, err
	}
	return len(p), nil
}
