package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"

	"luxd/cmd/luxd/handlers"
	"luxd/cmd/luxd/middleware"
	"luxd/pkg/backlight"
	"luxd/pkg/gamma"
	"luxd/pkg/logger"
	"luxd/pkg/telemetry"
)

func main() {
	logger.Setup()
	ctx := context.Background()

	// --- Telemetry Setup ---
	if endpoint := os.Getenv("LUXD_OTEL_ENDPOINT"); endpoint != "" {
		shutdown, err := telemetry.Setup(ctx, "luxd", endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("Error shutting down telemetry", "error", err)
			}
		}()
	}

	// --- Authentication Setup ---
	user := os.Getenv("LUXD_USER")
	password := os.Getenv("LUXD_PASSWORD")
	if user == "" || password == "" {
		logger.Fatal("LUXD_USER and LUXD_PASSWORD environment variables must be set")
	}
	secret := os.Getenv("LUXD_SESSION_SECRET")
	if secret == "" {
		logger.Fatal("LUXD_SESSION_SECRET environment variable must be set")
	}

	// --- Handlers ---
	sensorHandler, err := handlers.NewSensorHandler(os.Getenv("LUXD_SENSOR_DEVICE"), otel.Meter("luxd"))
	if err != nil {
		logger.Fatal("Failed to create sensor handler", "error", err)
	}
	backlightHandler := &handlers.BacklightHandler{DefaultDevice: os.Getenv("LUXD_BACKLIGHT_DEVICE")}
	if chip := os.Getenv("LUXD_PANEL_CHIP"); chip != "" {
		offset, err := strconv.Atoi(os.Getenv("LUXD_PANEL_OFFSET"))
		if err != nil {
			logger.Fatal("LUXD_PANEL_OFFSET must be a line offset on LUXD_PANEL_CHIP", "error", err)
		}
		panel, err := backlight.OpenPanel(chip, offset)
		if err != nil {
			logger.Fatal("Failed to open panel enable line", "chip", chip, "offset", offset, "error", err)
		}
		defer panel.Close()
		backlightHandler.Panel = panel
		slog.Info("Panel enable line ready", "chip", chip, "offset", offset)
	}
	gammaHandler := &handlers.GammaHandler{Output: gamma.NewMemory()}
	authHandler := &handlers.AuthHandler{User: user, Password: password}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(sessions.Sessions("luxd", cookie.NewStore([]byte(secret))))

	// --- Public Routes ---
	router.POST("/login", authHandler.Login)
	router.POST("/logout", authHandler.Logout)
	router.GET("/api/sensor/available", sensorHandler.Available)

	// --- Authenticated Routes ---
	authorized := router.Group("/api", middleware.AuthRequired)
	authorized.POST("/sensor/capture", sensorHandler.Capture)
	authorized.GET("/backlight", backlightHandler.List)
	authorized.PUT("/backlight", backlightHandler.Set)
	authorized.GET("/gamma", gammaHandler.Get)
	authorized.PUT("/gamma", gammaHandler.Set)

	// --- Scheduled Auto-Adjust ---
	if schedule := os.Getenv("LUXD_CAPTURE_SCHEDULE"); schedule != "" {
		cronLogger := &logger.CronLogger{Logger: slog.Default()}
		c := cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		)
		backlightDevice := os.Getenv("LUXD_BACKLIGHT_DEVICE")
		if _, err := c.AddFunc(schedule, func() {
			autoAdjust(sensorHandler, backlightDevice)
		}); err != nil {
			logger.Fatal("Failed to schedule auto-adjust job", "error", err, "schedule", schedule)
		}
		c.Start()
		defer c.Stop()
		slog.Info("Auto-adjust scheduled", "schedule", schedule)
	}

	addr := os.Getenv("LUXD_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	slog.Info("Server is running", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to run server", "error", err)
	}
}

// autoAdjust measures the ambient brightness and eases the backlight toward
// the matching level.
func autoAdjust(sensorHandler *handlers.SensorHandler, backlightDevice string) {
	value, err := sensorHandler.Measure(context.Background(), "", 5)
	if err != nil {
		slog.Error("Auto-adjust capture failed", "error", err)
		return
	}

	dev, err := backlight.Open(backlightDevice)
	if err != nil {
		slog.Error("Auto-adjust backlight open failed", "error", err)
		return
	}

	target := int(value*float64(dev.Max()) + 0.5)
	if err := dev.SetSmooth(target, dev.Max()/50+1, 30*time.Millisecond); err != nil {
		slog.Error("Auto-adjust backlight write failed", "error", err)
		return
	}
	slog.Info("Auto-adjusted backlight", "device", dev.Name, "brightness", value, "target", target)
}
