package sensor

import (
	"errors"
	"fmt"
	"syscall"
)

// The capture engine reports hardware failures through a small set of typed
// errors. Each one wraps the underlying OS error so the transport layer can
// recover the raw errno with ErrnoOf.

// DeviceOpenError means the device node could not be opened at all.
type DeviceOpenError struct {
	Path string
	Err  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("cannot open %s: %v", e.Path, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// UnsupportedDeviceError means the device is missing the video capture or
// streaming I/O capability.
type UnsupportedDeviceError struct {
	Path   string
	Reason string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *UnsupportedDeviceError) Unwrap() error { return syscall.ENOTSUP }

// FormatNegotiationError means the device rejected the requested pixel format.
type FormatNegotiationError struct {
	Err error
}

func (e *FormatNegotiationError) Error() string {
	return fmt.Sprintf("setting pixel format: %v", e.Err)
}

func (e *FormatNegotiationError) Unwrap() error { return e.Err }

// BufferRequestError means the device refused to hand out its frame buffer.
type BufferRequestError struct {
	Err error
}

func (e *BufferRequestError) Error() string {
	return fmt.Sprintf("requesting frame buffer: %v", e.Err)
}

func (e *BufferRequestError) Unwrap() error { return e.Err }

// MmapError means the frame buffer could not be mapped into process memory.
type MmapError struct {
	Err error
}

func (e *MmapError) Error() string {
	return fmt.Sprintf("mapping frame buffer: %v", e.Err)
}

func (e *MmapError) Unwrap() error { return e.Err }

// DeviceIoError is any other failed device call. Op names the ioctl that
// failed. Interrupted calls are retried before this is ever produced.
type DeviceIoError struct {
	Op    string
	Errno syscall.Errno
}

func (e *DeviceIoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Errno)
}

func (e *DeviceIoError) Unwrap() error { return e.Errno }

// ErrnoOf digs the OS error code out of a capture error. It returns 0 when
// the chain carries no errno.
func ErrnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
