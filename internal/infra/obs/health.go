package obs

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness, readiness and uptime measured from StartedAt.
type Health struct {
	StartedAt time.Time
	Ready     func(ctx context.Context) error
	Now       func() time.Time
}

func NewHealth(startedAt time.Time, ready func(ctx context.Context) error) *Health {
	return &Health{StartedAt: startedAt.UTC(), Ready: ready}
}

func (h *Health) Check(ctx context.Context) error {
	if h == nil || h.Ready == nil {
		return nil
	}
	return h.Ready(ctx)
}

func (h *Health) Uptime() time.Duration {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	return now.Sub(h.StartedAt)
}

func (h *Health) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *Health) Readyz(c *gin.Context) {
	if err := h.Check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Health) Status(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if err := h.Check(c.Request.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	uptime := h.Uptime()
	c.JSON(code, gin.H{
		"status":         status,
		"started_at":     h.StartedAt.Format(time.RFC3339),
		"uptime":         uptime.Truncate(time.Second).String(),
		"uptime_seconds": int64(uptime.Seconds()),
	})
}
