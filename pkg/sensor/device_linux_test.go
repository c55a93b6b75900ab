//go:build linux && (amd64 || arm64)

package sensor

import (
	"errors"
	"syscall"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func stubIoctl(t *testing.T, errnos ...syscall.Errno) *int {
	t.Helper()
	old := ioctlFn
	t.Cleanup(func() { ioctlFn = old })

	calls := new(int)
	ioctlFn = func(fd int, req uint, arg unsafe.Pointer) syscall.Errno {
		if *calls >= len(errnos) {
			t.Fatalf("Unexpected ioctl call %d", *calls+1)
		}
		e := errnos[*calls]
		*calls++
		return e
	}
	return calls
}

func TestIoctlRetriesInterruptedCalls(t *testing.T) {
	calls := stubIoctl(t, unix.EINTR, unix.EINTR, 0)

	d := &v4l2Device{fd: 3}
	if err := d.xioctl("VIDIOC_STREAMON", VIDIOC_STREAMON, nil); err != nil {
		t.Fatalf("Expected success after retried interrupts, got %v", err)
	}
	if *calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", *calls)
	}
}

func TestIoctlSurfacesOtherErrnos(t *testing.T) {
	calls := stubIoctl(t, unix.EBUSY)

	d := &v4l2Device{fd: 3}
	err := d.xioctl("VIDIOC_DQBUF", VIDIOC_DQBUF, nil)
	if err == nil {
		t.Fatal("Expected an error")
	}

	// No retry on a real fault
	if *calls != 1 {
		t.Errorf("Expected a single attempt, got %d", *calls)
	}

	var ioErr *DeviceIoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected a DeviceIoError, got %T", err)
	}
	if ioErr.Op != "VIDIOC_DQBUF" || ioErr.Errno != unix.EBUSY {
		t.Errorf("Expected VIDIOC_DQBUF/EBUSY, got %s/%v", ioErr.Op, ioErr.Errno)
	}
	if ErrnoOf(err) != unix.EBUSY {
		t.Errorf("Expected EBUSY from ErrnoOf, got %v", ErrnoOf(err))
	}
}
