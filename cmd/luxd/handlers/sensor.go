package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"luxd/pkg/sensor"
)

// SensorHandler serves the webcam ambient-light endpoints. The capture engine
// holds one session at a time and does no locking of its own, so this handler
// owns the serialization discipline: a request keeps the mutex for the whole
// capture, teardown included.
type SensorHandler struct {
	DefaultDevice string

	captures   metric.Int64Counter
	failures   metric.Int64Counter
	brightness metric.Float64Gauge
	duration   metric.Float64Histogram

	mu sync.Mutex
}

// NewSensorHandler builds the handler and its instruments on the given meter.
func NewSensorHandler(defaultDevice string, meter metric.Meter) (*SensorHandler, error) {
	h := &SensorHandler{DefaultDevice: defaultDevice}

	var err error
	if h.captures, err = meter.Int64Counter("luxd.sensor.captures",
		metric.WithDescription("Number of capture requests")); err != nil {
		return nil, err
	}
	if h.failures, err = meter.Int64Counter("luxd.sensor.failures",
		metric.WithDescription("Number of failed capture requests")); err != nil {
		return nil, err
	}
	if h.brightness, err = meter.Float64Gauge("luxd.sensor.brightness",
		metric.WithDescription("Last measured ambient brightness, 0-1")); err != nil {
		return nil, err
	}
	if h.duration, err = meter.Float64Histogram("luxd.sensor.capture_duration",
		metric.WithDescription("Capture duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return h, nil
}

// Measure runs one serialized capture session and records the metrics. Both
// the HTTP endpoint and the scheduled auto-adjust job come through here.
func (h *SensorHandler) Measure(ctx context.Context, device string, numCaptures int) (float64, error) {
	if device == "" {
		device = h.DefaultDevice
	}
	if device == "" {
		return 0, fmt.Errorf("no capture device configured")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("device", device))
	start := time.Now()
	value, err := sensor.Capture(device, numCaptures)
	h.captures.Add(ctx, 1, attrs)
	h.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		h.failures.Add(ctx, 1, attrs)
		return 0, err
	}
	h.brightness.Record(ctx, value, attrs)
	return value, nil
}

type captureRequest struct {
	Device   string `json:"device"`
	Captures int    `json:"captures"`
}

// Capture handles POST /api/sensor/capture. The captures bound is enforced
// here; the engine trusts its caller on it.
func (h *SensorHandler) Capture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Captures < 1 || req.Captures > 20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "captures must be between 1 and 20"})
		return
	}

	id := uuid.NewString()
	slog.Info("Starting capture", "id", id, "device", req.Device, "captures", req.Captures)

	value, err := h.Measure(c.Request.Context(), req.Device, req.Captures)
	if err != nil {
		slog.Error("Capture failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"errno": int(sensor.ErrnoOf(err)),
		})
		return
	}

	slog.Info("Capture finished", "id", id, "brightness", value)
	c.JSON(http.StatusOK, gin.H{"brightness": value})
}

// Available handles GET /api/sensor/available.
func (h *SensorHandler) Available(c *gin.Context) {
	device := c.Query("device")
	if device == "" {
		device = h.DefaultDevice
	}
	if device == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no capture device configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"device":    device,
		"available": sensor.Available(device),
	})
}
