package handlers

import (
	"net/http"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/scheduler"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/updates"
	"github.com/labstack/echo/v4"
)

// QueueStats reports the fan-out queue
type QueueStats interface {
	Stats() updates.DispatcherStats
}

// SweepStatus reports the scheduler
type SweepStatus interface {
	Status() scheduler.Status
}

// HealthHandler serves the health check
type HealthHandler struct {
	queue     QueueStats
	scheduler SweepStatus
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(queue QueueStats, sweeps SweepStatus) *HealthHandler {
	return &HealthHandler{queue: queue, scheduler: sweeps}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	body := echo.Map{
		"status":  "healthy",
		"service": "bulletin-updates",
	}
	if h.queue != nil {
		body["fanout"] = h.queue.Stats()
	}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.Status()
	}
	return c.JSON(http.StatusOK, body)
}
