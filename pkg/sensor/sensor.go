// Package sensor captures frames from a V4L2 webcam and reduces them to a
// single ambient-brightness figure in [0,1].
//
// A capture call is fully synchronous: it opens the device, negotiates a
// small YUYV frame, memory-maps the driver's single frame buffer, pulls the
// requested number of frames and computes a trimmed mean of their luma
// averages. All device resources are released before the call returns,
// whether it succeeded or not.
//
// The engine holds exactly one session at a time and uses no internal
// locking; callers must serialize invocations themselves.
package sensor

// Capture samples ambient brightness from the video device at path and
// returns a value in [0,1]. numCaptures is the number of frames to average;
// the caller is responsible for keeping it within [1,20].
func Capture(path string, numCaptures int) (float64, error) {
	dev, err := openDevice(path)
	if err != nil {
		return 0, err
	}
	return capture(dev, numCaptures)
}

// Available reports whether path names a usable capture device: it must open
// and advertise both the video capture and streaming capabilities.
func Available(path string) bool {
	dev, err := openDevice(path)
	if err != nil {
		return false
	}
	defer dev.Close()

	capture, streaming, err := dev.Capabilities()
	return err == nil && capture && streaming
}
