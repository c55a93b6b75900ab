package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"luxd/pkg/gamma"
)

// GammaHandler serves the color temperature endpoints.
type GammaHandler struct {
	Output gamma.Output
}

// Get handles GET /api/gamma.
func (h *GammaHandler) Get(c *gin.Context) {
	temp, err := h.Output.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	gains := gamma.FromTemperature(temp)
	c.JSON(http.StatusOK, gin.H{
		"temperature": temp,
		"red":         gains.R,
		"green":       gains.G,
		"blue":        gains.B,
	})
}

type gammaRequest struct {
	Temperature int `json:"temperature"`
}

// Set handles PUT /api/gamma.
func (h *GammaHandler) Set(c *gin.Context) {
	var req gammaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Temperature < gamma.MinTemperature || req.Temperature > gamma.MaxTemperature {
		c.JSON(http.StatusBadRequest, gin.H{"error": "temperature must be between 1000 and 10000"})
		return
	}

	if err := h.Output.Set(req.Temperature); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Gamma set", "temperature", req.Temperature)
	c.JSON(http.StatusOK, gin.H{"temperature": req.Temperature})
}
