//go:build linux && (amd64 || arm64)

package sensor

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// v4l2Device implements frameDevice on top of raw V4L2 ioctls. The file
// descriptor is opened blocking on purpose: DequeueBuffer must park the
// calling thread until the driver has filled the buffer.
type v4l2Device struct {
	path string
	fd   int
}

func openDevice(path string) (frameDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceOpenError{Path: path, Err: err}
	}
	return &v4l2Device{path: path, fd: fd}, nil
}

// ioctlFn is the raw ioctl entry point, swappable in tests.
var ioctlFn = func(fd int, req uint, arg unsafe.Pointer) syscall.Errno {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	return errno
}

// xioctl issues an ioctl and transparently retries it while the syscall was
// merely interrupted. Any other failure is a true fault and comes back as a
// DeviceIoError carrying the errno.
func (d *v4l2Device) xioctl(op string, req uint, arg unsafe.Pointer) error {
	for {
		errno := ioctlFn(d.fd, req, arg)
		if errno == 0 {
			return nil
		}
		if errno == unix.EINTR {
			continue
		}
		return &DeviceIoError{Op: op, Errno: errno}
	}
}

func (d *v4l2Device) Capabilities() (bool, bool, error) {
	var caps v4l2Capability
	if err := d.xioctl("VIDIOC_QUERYCAP", VIDIOC_QUERYCAP, unsafe.Pointer(&caps)); err != nil {
		return false, false, err
	}
	return caps.capabilities&V4L2_CAP_VIDEO_CAPTURE != 0,
		caps.capabilities&V4L2_CAP_STREAMING != 0,
		nil
}

func (d *v4l2Device) SetBackgroundPriority() error {
	prio := uint32(V4L2_PRIORITY_BACKGROUND)
	return d.xioctl("VIDIOC_S_PRIORITY", VIDIOC_S_PRIORITY, unsafe.Pointer(&prio))
}

func (d *v4l2Device) NegotiateFormat(width, height uint32) (uint32, uint32, error) {
	format := v4l2Format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	pix := format.pix()
	pix.width = width
	pix.height = height
	pix.pixelformat = V4L2_PIX_FMT_YUYV
	pix.field = V4L2_FIELD_INTERLACED

	if err := d.xioctl("VIDIOC_S_FMT", VIDIOC_S_FMT, unsafe.Pointer(&format)); err != nil {
		return 0, 0, err
	}
	// The driver may have substituted the nearest size it supports.
	return pix.width, pix.height, nil
}

func (d *v4l2Device) RequestBuffer() (uint32, uint32, error) {
	req := v4l2RequestBuffers{
		count:  1,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := d.xioctl("VIDIOC_REQBUFS", VIDIOC_REQBUFS, unsafe.Pointer(&req)); err != nil {
		return 0, 0, err
	}

	buf := v4l2Buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
		index:  0,
	}
	if err := d.xioctl("VIDIOC_QUERYBUF", VIDIOC_QUERYBUF, unsafe.Pointer(&buf)); err != nil {
		return 0, 0, err
	}
	return buf.length, buf.offset, nil
}

func (d *v4l2Device) MapBuffer(offset, length uint32) ([]byte, error) {
	return unix.Mmap(d.fd, int64(offset), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (d *v4l2Device) UnmapBuffer(buf []byte) error {
	return unix.Munmap(buf)
}

func (d *v4l2Device) StreamOn() error {
	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return d.xioctl("VIDIOC_STREAMON", VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

func (d *v4l2Device) StreamOff() error {
	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return d.xioctl("VIDIOC_STREAMOFF", VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}

func (d *v4l2Device) EnqueueBuffer() error {
	buf := v4l2Buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
		index:  0,
	}
	return d.xioctl("VIDIOC_QBUF", VIDIOC_QBUF, unsafe.Pointer(&buf))
}

func (d *v4l2Device) DequeueBuffer() (uint32, error) {
	buf := v4l2Buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
		index:  0,
	}
	if err := d.xioctl("VIDIOC_DQBUF", VIDIOC_DQBUF, unsafe.Pointer(&buf)); err != nil {
		return 0, err
	}
	return buf.bytesused, nil
}

func (d *v4l2Device) Close() error {
	return unix.Close(d.fd)
}
