package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"luxd/pkg/backlight"
)

// PanelController switches the display's power supply. Satisfied by
// backlight.Panel on boards whose panel is gated by a GPIO line.
type PanelController interface {
	PowerOn() error
	PowerOff() error
}

// BacklightHandler serves the sysfs backlight endpoints. When a Panel is
// wired in, the supply follows the brightness: off at zero, on otherwise.
type BacklightHandler struct {
	DefaultDevice string
	Panel         PanelController
}

// List handles GET /api/backlight.
func (h *BacklightHandler) List(c *gin.Context) {
	names, err := backlight.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	devices := make([]gin.H, 0, len(names))
	for _, name := range names {
		dev, err := backlight.Open(name)
		if err != nil {
			slog.Warn("Skipping backlight device", "device", name, "error", err)
			continue
		}
		current, err := dev.Get()
		if err != nil {
			slog.Warn("Skipping backlight device", "device", name, "error", err)
			continue
		}
		devices = append(devices, gin.H{
			"device":     dev.Name,
			"brightness": current,
			"max":        dev.Max(),
			"percent":    float64(current) / float64(dev.Max()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

type backlightRequest struct {
	Device  string   `json:"device"`
	Percent *float64 `json:"percent"`
	Smooth  bool     `json:"smooth"`
}

// Set handles PUT /api/backlight.
func (h *BacklightHandler) Set(c *gin.Context) {
	var req backlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Percent == nil || *req.Percent < 0 || *req.Percent > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percent must be between 0 and 1"})
		return
	}

	device := req.Device
	if device == "" {
		device = h.DefaultDevice
	}
	dev, err := backlight.Open(device)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	target := int(*req.Percent*float64(dev.Max()) + 0.5)
	if req.Smooth {
		err = dev.SetSmooth(target, dev.Max()/50+1, 30*time.Millisecond)
	} else {
		err = dev.Set(target)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.Panel != nil {
		if target == 0 {
			err = h.Panel.PowerOff()
		} else {
			err = h.Panel.PowerOn()
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	slog.Info("Backlight set", "device", dev.Name, "brightness", target, "smooth", req.Smooth)
	c.JSON(http.StatusOK, gin.H{
		"device":     dev.Name,
		"brightness": target,
		"max":        dev.Max(),
	})
}
