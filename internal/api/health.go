// Package api provides the HTTP gateway in front of the sync controller.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/syncer"
)

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	ctrl      SyncController
	hub       ClientCounter
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. hub may be nil.
func NewHealthHandler(ctrl SyncController, hub ClientCounter, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		ctrl:      ctrl,
		hub:       hub,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// healthResponse is the JSON payload returned by the liveness endpoint.
type healthResponse struct {
	Status        string               `json:"status"`
	Version       string               `json:"version"`
	Phase         syncer.Phase         `json:"phase"`
	Backend       syncer.BackendStatus `json:"backend"`
	WSClients     int                  `json:"ws_clients"`
	UptimeSeconds float64              `json:"uptime_seconds"`
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health. The gateway is alive whenever it can
// answer; backend reachability is reported but never fails the check.
func (h *HealthHandler) Liveness(c *gin.Context) {
	s := h.ctrl.Snapshot()

	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Phase:         s.Phase,
		Backend:       s.Backend,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The gateway is ready once a dataset
// has been applied, so charts have something to draw.
func (h *HealthHandler) Readiness(c *gin.Context) {
	s := h.ctrl.Snapshot()

	checks := map[string]string{
		"backend": string(s.Backend),
		"data":    "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	if !s.HasData() {
		checks["data"] = "pending"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}
