package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker pings the process dependencies.
type ReadinessChecker interface {
	Ready(ctx context.Context) (map[string]string, bool)
}

type SystemHandler struct {
	checker ReadinessChecker
}

func NewSystemHandler(checker ReadinessChecker) *SystemHandler {
	return &SystemHandler{checker: checker}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks, healthy := h.checker.Ready(ctx)

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
