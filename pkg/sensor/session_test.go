package sensor

import (
	"errors"
	"syscall"
	"testing"
)

// fakeDevice scripts the behavior of a capture device so the session state
// machine can be exercised without hardware.
type fakeDevice struct {
	noCapture   bool
	noStreaming bool

	capsErr      error
	priorityErr  error
	formatErr    error
	requestErr   error
	mapErr       error
	streamOnErr  error
	streamOffErr error

	enqueueFailAt  int // frame index whose enqueue fails, -1 for never
	dequeueFailAt  map[int]bool
	frameLuma      []byte // luma value the driver "fills" per frame index
	width, height  uint32
	buffer         []byte
	enqueues       int
	dequeues       int
	streamOnCount  int
	streamOffCount int
	mapped         bool
	unmapped       bool
	closed         bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		enqueueFailAt: -1,
		dequeueFailAt: map[int]bool{},
		width:         160,
		height:        120,
	}
}

func (d *fakeDevice) Capabilities() (bool, bool, error) {
	if d.capsErr != nil {
		return false, false, d.capsErr
	}
	return !d.noCapture, !d.noStreaming, nil
}

func (d *fakeDevice) SetBackgroundPriority() error { return d.priorityErr }

func (d *fakeDevice) NegotiateFormat(w, h uint32) (uint32, uint32, error) {
	if d.formatErr != nil {
		return 0, 0, d.formatErr
	}
	return d.width, d.height, nil
}

func (d *fakeDevice) RequestBuffer() (uint32, uint32, error) {
	if d.requestErr != nil {
		return 0, 0, d.requestErr
	}
	return d.width * d.height * 2, 0, nil
}

func (d *fakeDevice) MapBuffer(offset, length uint32) ([]byte, error) {
	if d.mapErr != nil {
		return nil, d.mapErr
	}
	d.buffer = make([]byte, length)
	d.mapped = true
	return d.buffer, nil
}

func (d *fakeDevice) UnmapBuffer(buf []byte) error {
	d.unmapped = true
	return nil
}

func (d *fakeDevice) StreamOn() error {
	if d.streamOnErr != nil {
		return d.streamOnErr
	}
	d.streamOnCount++
	return nil
}

func (d *fakeDevice) StreamOff() error {
	d.streamOffCount++
	return d.streamOffErr
}

func (d *fakeDevice) EnqueueBuffer() error {
	frame := d.enqueues
	d.enqueues++
	if frame == d.enqueueFailAt {
		return &DeviceIoError{Op: "VIDIOC_QBUF", Errno: syscall.EIO}
	}
	return nil
}

func (d *fakeDevice) DequeueBuffer() (uint32, error) {
	frame := d.dequeues
	d.dequeues++
	if d.dequeueFailAt[frame] {
		return 0, &DeviceIoError{Op: "VIDIOC_DQBUF", Errno: syscall.EIO}
	}
	luma := byte(0)
	if frame < len(d.frameLuma) {
		luma = d.frameLuma[frame]
	}
	for i := 0; i < len(d.buffer); i += 2 {
		d.buffer[i] = luma
	}
	return uint32(len(d.buffer)), nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func TestCaptureSuccess(t *testing.T) {
	dev := newFakeDevice()
	dev.frameLuma = []byte{100, 50, 200}

	got, err := capture(dev, 3)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// 50 and 200 are trimmed, leaving 100/255.
	want := 100.0 / 255.0
	if !almostEqual(got, want) {
		t.Errorf("Expected brightness %v, got %v", want, got)
	}

	// Device fully released and stream balanced.
	if dev.streamOnCount != 1 || dev.streamOffCount != 1 {
		t.Errorf("Unbalanced streaming: on=%d off=%d", dev.streamOnCount, dev.streamOffCount)
	}
	if !dev.unmapped || !dev.closed {
		t.Errorf("Resources leaked: unmapped=%v closed=%v", dev.unmapped, dev.closed)
	}
}

func TestCaptureUnsupportedDevice(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*fakeDevice)
	}{
		{"NoCapture", func(d *fakeDevice) { d.noCapture = true }},
		{"NoStreaming", func(d *fakeDevice) { d.noStreaming = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := newFakeDevice()
			tc.mod(dev)

			_, err := capture(dev, 3)
			var unsupported *UnsupportedDeviceError
			if !errors.As(err, &unsupported) {
				t.Fatalf("Expected UnsupportedDeviceError, got %v", err)
			}
			if dev.mapped {
				t.Error("Buffer should never be mapped for an unsupported device")
			}
			if !dev.closed {
				t.Error("Device not closed after failed capability check")
			}
		})
	}
}

func TestPriorityFailureIsNonFatal(t *testing.T) {
	dev := newFakeDevice()
	dev.priorityErr = &DeviceIoError{Op: "VIDIOC_S_PRIORITY", Errno: syscall.EINVAL}
	dev.frameLuma = []byte{100}

	if _, err := capture(dev, 1); err != nil {
		t.Errorf("Priority downgrade failure must not fail the session: %v", err)
	}
}

func TestFormatNegotiationFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.formatErr = &DeviceIoError{Op: "VIDIOC_S_FMT", Errno: syscall.EINVAL}

	_, err := capture(dev, 3)
	var negotiation *FormatNegotiationError
	if !errors.As(err, &negotiation) {
		t.Fatalf("Expected FormatNegotiationError, got %v", err)
	}
	if dev.mapped {
		t.Error("No buffer request should follow a rejected format")
	}
	if !dev.closed {
		t.Error("Device not closed after format failure")
	}
}

func TestBufferStageFailures(t *testing.T) {
	t.Run("Request", func(t *testing.T) {
		dev := newFakeDevice()
		dev.requestErr = &DeviceIoError{Op: "VIDIOC_REQBUFS", Errno: syscall.ENOMEM}

		_, err := capture(dev, 3)
		var request *BufferRequestError
		if !errors.As(err, &request) {
			t.Fatalf("Expected BufferRequestError, got %v", err)
		}
		if !dev.closed {
			t.Error("Device not closed")
		}
	})

	t.Run("Mmap", func(t *testing.T) {
		dev := newFakeDevice()
		dev.mapErr = syscall.ENOMEM

		_, err := capture(dev, 3)
		var mmap *MmapError
		if !errors.As(err, &mmap) {
			t.Fatalf("Expected MmapError, got %v", err)
		}
		if dev.unmapped {
			t.Error("Unmap must not run when mapping never succeeded")
		}
		if !dev.closed {
			t.Error("Device not closed")
		}
	})
}

func TestStreamOnFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.streamOnErr = &DeviceIoError{Op: "VIDIOC_STREAMON", Errno: syscall.EIO}

	_, err := capture(dev, 3)
	if err == nil {
		t.Fatal("Expected an error when streaming cannot start")
	}
	// The device never entered streaming, so stop must not be attempted.
	if dev.streamOffCount != 0 {
		t.Errorf("StreamOff called %d times after failed StreamOn", dev.streamOffCount)
	}
	if dev.enqueues != 0 {
		t.Error("No frame should be enqueued after failed StreamOn")
	}
	if !dev.unmapped || !dev.closed {
		t.Errorf("Resources leaked: unmapped=%v closed=%v", dev.unmapped, dev.closed)
	}
}

func TestDequeueFailureIsContained(t *testing.T) {
	// Frame 2 of 5 fails to dequeue: the loop carries on, the sample stays
	// zero, and the stream is still stopped exactly once.
	dev := newFakeDevice()
	dev.frameLuma = []byte{100, 100, 100, 100, 100}
	dev.dequeueFailAt[2] = true

	got, err := capture(dev, 5)
	if err != nil {
		t.Fatalf("Dequeue failure must not fail the session: %v", err)
	}
	if dev.dequeues != 5 {
		t.Errorf("Expected all 5 dequeue attempts, got %d", dev.dequeues)
	}
	if dev.streamOffCount != 1 {
		t.Errorf("Expected exactly one StreamOff, got %d", dev.streamOffCount)
	}

	// samples = [100 100 0 100 100]: the zero is the trimmed minimum, one
	// 100 the maximum, leaving the mean of three 100s.
	want := 100.0 / 255.0
	if !almostEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestEnqueueFailureIsFatal(t *testing.T) {
	// Frame 2 of 5 fails to enqueue: remaining captures are abandoned, the
	// stream is stopped and the call errors out.
	dev := newFakeDevice()
	dev.frameLuma = []byte{100, 100, 100, 100, 100}
	dev.enqueueFailAt = 2

	_, err := capture(dev, 5)
	if err == nil {
		t.Fatal("Expected an error after a failed enqueue")
	}
	if dev.enqueues != 3 {
		t.Errorf("Expected enqueue attempts to stop at the failure, got %d", dev.enqueues)
	}
	if dev.dequeues != 2 {
		t.Errorf("Expected 2 completed dequeues before the failure, got %d", dev.dequeues)
	}
	if dev.streamOffCount != 1 {
		t.Errorf("Stream must still be stopped once, got %d", dev.streamOffCount)
	}
	if !dev.unmapped || !dev.closed {
		t.Errorf("Resources leaked: unmapped=%v closed=%v", dev.unmapped, dev.closed)
	}
}

func TestAllDequeuesFail(t *testing.T) {
	dev := newFakeDevice()
	for i := 0; i < 4; i++ {
		dev.dequeueFailAt[i] = true
	}

	got, err := capture(dev, 4)
	if err != nil {
		t.Fatalf("All-failed dequeues must still produce a result: %v", err)
	}
	if got != 0.0 {
		t.Errorf("Expected exactly 0 for all-zero samples, got %v", got)
	}
}

func TestStreamOffFailureKeepsResult(t *testing.T) {
	dev := newFakeDevice()
	dev.frameLuma = []byte{100, 100, 100}
	dev.streamOffErr = &DeviceIoError{Op: "VIDIOC_STREAMOFF", Errno: syscall.EIO}

	got, err := capture(dev, 3)
	if err != nil {
		t.Fatalf("StreamOff failure must not discard the aggregation: %v", err)
	}
	if !almostEqual(got, 100.0/255.0) {
		t.Errorf("Expected %v, got %v", 100.0/255.0, got)
	}
}
