// Package platform declares the external collaborator interfaces the
// core consumes (block storage, framebuffer, ticks). These are pure
// interfaces: no kernel bring-up, HAL, or filesystem layout lives
// here, only the seams a host environment plugs implementations into.
package platform

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// BlockSize is the fixed block size every BlockDevice operates in.
const BlockSize = 512

// BlockDevice is the block-device read/write interface consumed by
// pkg/resource.
type BlockDevice interface {
	ReadBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr
	WriteBlocks(driveIndex int, startBlock, count uint32, buf []byte) toolboxerr.OSErr
}

// FrameBuffer is the framebuffer descriptor consumed by pkg/menubits.
type FrameBuffer struct {
	Base    []byte
	Width   int
	Height  int
	Pitch   int
	PixelSize int
	ChannelOffsets [4]int
}

// TickSource is a monotonic tick-count source, nominally 60Hz,
// consumed by pkg/extension (InitTime/LoadTime) and pkg/appleevent
// (tick stamps on dispatch and recording).
type TickSource interface {
	Ticks() uint64
}
