package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/tgrelay/internal/utils"
)

const checkTimeout = 5 * time.Second

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Dependency is a named health probe.
type Dependency struct {
	Name string
	// Critical dependencies also gate readiness.
	Critical bool
	Check    CheckFunc
}

type HealthHandler struct {
	version      string
	dependencies []Dependency
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

func NewHealthHandler(version string, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{
		version:      version,
		dependencies: dependencies,
	}
}

// Health godoc
// @Summary Health check endpoint
// @Description Check the bot and every dependency it relays media through
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.version,
		Services:  make(map[string]ServiceHealth),
	}

	overallHealthy := true
	for _, dep := range h.dependencies {
		health := h.check(ctx, dep)
		response.Services[dep.Name] = health
		if health.Status != "healthy" {
			overallHealthy = false
		}
	}

	if !overallHealthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Readiness godoc
// @Summary Readiness check endpoint
// @Description Check if the bot can talk to Telegram; only critical dependencies are checked
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Success 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()

	ready := true
	checks := make(map[string]interface{})

	for _, dep := range h.dependencies {
		if !dep.Critical {
			continue
		}
		health := h.check(ctx, dep)
		if health.Status != "healthy" {
			ready = false
			checks[dep.Name] = map[string]interface{}{
				"ready": false,
				"error": health.Error,
			}
		} else {
			checks[dep.Name] = map[string]interface{}{
				"ready": true,
			}
		}
	}

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	if ready {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// Liveness godoc
// @Summary Liveness check endpoint
// @Description Check if the process is alive
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /live [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) check(ctx context.Context, dep Dependency) ServiceHealth {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := dep.Check(checkCtx)
	responseTime := time.Since(start).String()

	if err != nil {
		utils.LogError(ctx, "Health check failed", err, utils.Fields{"service": dep.Name})
		return ServiceHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
			Error:        err.Error(),
		}
	}

	return ServiceHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
