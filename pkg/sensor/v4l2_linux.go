//go:build linux && (amd64 || arm64)

package sensor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Just enough of the V4L2 ABI for single-buffer memory-mapped capture.
// Request codes encode the struct sizes, so the layouts below must match
// <linux/videodev2.h> exactly. They hold only on 64-bit kernels, hence the
// build constraint; 32-bit targets fall back to the stub device.

const (
	VIDIOC_QUERYCAP   = 0x80685600
	VIDIOC_S_FMT      = 0xc0d05605
	VIDIOC_REQBUFS    = 0xc0145608
	VIDIOC_QUERYBUF   = 0xc0585609
	VIDIOC_QBUF       = 0xc058560f
	VIDIOC_DQBUF      = 0xc0585611
	VIDIOC_STREAMON   = 0x40045612
	VIDIOC_STREAMOFF  = 0x40045613
	VIDIOC_S_PRIORITY = 0x40045644

	V4L2_CAP_VIDEO_CAPTURE = 0x00000001
	V4L2_CAP_STREAMING     = 0x04000000

	V4L2_BUF_TYPE_VIDEO_CAPTURE = 1
	V4L2_MEMORY_MMAP            = 1
	V4L2_FIELD_INTERLACED       = 4
	V4L2_PRIORITY_BACKGROUND    = 1

	// 'YUYV' little endian: packed luma/chroma, 2 bytes per pixel, luma at
	// even byte offsets.
	V4L2_PIX_FMT_YUYV = 0x56595559
)

type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format carries a 200-byte union; only the pix member is used here. The
// union holds pointer-bearing members, hence the 8-byte alignment pad after
// the type field.
type v4l2Format struct {
	typ uint32
	_   uint32
	raw [200]byte
}

func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.raw[0]))
}

type v4l2RequestBuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         uint32
	timestamp unix.Timeval
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	offset    uint32 // union m; only the mmap offset member is used
	_         uint32
	length    uint32
	reserved2 uint32
	requestFD uint32
	_         uint32
}
