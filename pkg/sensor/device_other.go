//go:build !linux || (!amd64 && !arm64)

package sensor

import "syscall"

// openDevice is a stub for platforms without V4L2 and for 32-bit targets,
// where the hand-laid ioctl layouts would not match the kernel ABI.
func openDevice(path string) (frameDevice, error) {
	return nil, &DeviceOpenError{Path: path, Err: syscall.ENOTSUP}
}
