package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/pkg/dto"
)

// SyncRunner starts background runs and keeps the last report.
type SyncRunner interface {
	Options(req dto.SyncRequest) reconcile.Options
	StartAsync(ctx context.Context, opts reconcile.Options) (string, error)
	LastReport() (*reconcile.RunReport, bool)
}

type SyncHandler struct {
	runner SyncRunner
	// runCtx outlives the request; runs are cancelled on shutdown only.
	runCtx context.Context
}

func NewSyncHandler(runCtx context.Context, runner SyncRunner) *SyncHandler {
	return &SyncHandler{runner: runner, runCtx: runCtx}
}

func (h *SyncHandler) Start(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DryRun && req.Import {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run and import are exclusive"})
		return
	}

	opts := h.runner.Options(req)
	id, err := h.runner.StartAsync(h.runCtx, opts)
	switch {
	case errors.Is(err, reconcile.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.SyncAccepted{RunID: id, Mode: string(opts.Mode())})
}

func (h *SyncHandler) Last(c *gin.Context) {
	r, ok := h.runner.LastReport()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}
