package sensor

import (
	"log/slog"
)

// Requested capture format. The driver may override the dimensions; whatever
// it returns is what the brightness math uses.
const (
	requestWidth  = 160
	requestHeight = 120
)

// frameDevice is the narrow surface of a streaming capture device the session
// drives. The Linux implementation speaks V4L2 through ioctls; tests
// substitute a fake. Keeping the single-buffer strategy behind this boundary
// means a multi-buffer acquisition scheme could replace it without touching
// the analyzer.
type frameDevice interface {
	// Capabilities reports whether the device can capture video and whether
	// it supports streaming I/O.
	Capabilities() (capture, streaming bool, err error)

	// SetBackgroundPriority lowers the process priority on the device so an
	// interactive consumer keeps precedence. Optional: failure is tolerated.
	SetBackgroundPriority() error

	// NegotiateFormat asks for a packed-YUYV frame of the given size and
	// returns the dimensions the driver actually granted.
	NegotiateFormat(width, height uint32) (gotWidth, gotHeight uint32, err error)

	// RequestBuffer asks the driver for its single frame buffer and returns
	// the buffer's length and mapping offset.
	RequestBuffer() (length, offset uint32, err error)

	MapBuffer(offset, length uint32) ([]byte, error)
	UnmapBuffer(buf []byte) error

	StreamOn() error
	StreamOff() error

	// EnqueueBuffer hands the buffer to the driver to fill.
	EnqueueBuffer() error

	// DequeueBuffer blocks until the driver has filled the buffer and
	// returns the number of valid bytes.
	DequeueBuffer() (bytesUsed uint32, err error)

	Close() error
}

// captureSession owns the state of one capture call. It is created on open
// and destroyed unconditionally when the call returns; it is never shared
// between calls.
type captureSession struct {
	dev     frameDevice
	width   uint32
	height  uint32
	buffer  []byte
	samples []float64
	fault   error
}

// fail records a fault. The first fault wins; later ones are dropped.
func (s *captureSession) fail(err error) {
	if s.fault == nil {
		s.fault = err
	}
}

func (s *captureSession) failed() bool { return s.fault != nil }

// negotiate validates the device class and fixes the capture format.
func (s *captureSession) negotiate() {
	capture, streaming, err := s.dev.Capabilities()
	if err != nil {
		s.fail(err)
		return
	}
	if !capture {
		s.fail(&UnsupportedDeviceError{Reason: "not a video capture device"})
		return
	}
	if !streaming {
		s.fail(&UnsupportedDeviceError{Reason: "device does not support streaming I/O"})
		return
	}

	// A camera shared with an interactive app should yield to it. Not all
	// drivers implement priorities, so this call alone may fail freely.
	if err := s.dev.SetBackgroundPriority(); err != nil {
		slog.Warn("Could not lower device priority", "error", err)
	}

	w, h, err := s.dev.NegotiateFormat(requestWidth, requestHeight)
	if err != nil {
		s.fail(&FormatNegotiationError{Err: err})
		return
	}
	s.width = w
	s.height = h
}

// allocate requests the device's single frame buffer and maps it.
func (s *captureSession) allocate() {
	length, offset, err := s.dev.RequestBuffer()
	if err != nil {
		s.fail(&BufferRequestError{Err: err})
		return
	}

	buf, err := s.dev.MapBuffer(offset, length)
	if err != nil {
		s.fail(&MmapError{Err: err})
		return
	}
	s.buffer = buf
}

// run starts the stream and pulls numCaptures frames. A failed enqueue kills
// the whole session; a failed dequeue only leaves that sample at zero. Once
// streaming has started, the stream is always stopped before returning, no
// matter what happened inside the loop.
func (s *captureSession) run(numCaptures int) {
	s.samples = make([]float64, numCaptures)

	if err := s.dev.StreamOn(); err != nil {
		// The device never entered the streaming state, so there is
		// nothing to stop.
		s.fail(err)
		return
	}

	for i := 0; i < numCaptures && !s.failed(); i++ {
		s.captureFrame(i)
	}

	if err := s.dev.StreamOff(); err != nil {
		slog.Error("Could not stop stream", "error", err)
	}
}

func (s *captureSession) captureFrame(i int) {
	if err := s.dev.EnqueueBuffer(); err != nil {
		// The driver refused to take its own buffer back; the remaining
		// captures are unreachable. Dequeue failures below are softer.
		s.fail(err)
		return
	}

	used, err := s.dev.DequeueBuffer()
	if err != nil {
		// Leave samples[i] at zero and move on. The zero still counts
		// toward the aggregate, exactly as a pure-black frame would.
		slog.Warn("Could not retrieve frame", "frame", i, "error", err)
		return
	}

	s.samples[i] = frameBrightness(s.buffer, used, s.width, s.height)
}

// close releases whatever the session managed to acquire. Each check is
// independent so it is safe on every partially-initialized state.
func (s *captureSession) close() {
	if s.buffer != nil {
		if err := s.dev.UnmapBuffer(s.buffer); err != nil {
			slog.Error("Could not unmap frame buffer", "error", err)
		}
		s.buffer = nil
	}
	if s.dev != nil {
		if err := s.dev.Close(); err != nil {
			slog.Error("Could not close capture device", "error", err)
		}
	}
	s.samples = nil
}

// capture drives a full session against an already-opened device: negotiate,
// allocate, stream, aggregate. Cleanup runs on every exit path.
func capture(dev frameDevice, numCaptures int) (float64, error) {
	s := &captureSession{dev: dev}
	defer s.close()

	s.negotiate()
	if s.failed() {
		return 0, s.fault
	}

	s.allocate()
	if s.failed() {
		return 0, s.fault
	}

	s.run(numCaptures)
	if s.failed() {
		return 0, s.fault
	}

	return aggregate(s.samples), nil
}
