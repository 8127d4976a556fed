package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/fdsync/internal/groups"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/pkg/dto"
)

// GroupAdmin manages destination tenant groups.
type GroupAdmin interface {
	List(ctx context.Context) ([]models.TenantGroup, error)
	Add(ctx context.Context, name string, t groups.Type) (models.TenantGroup, error)
	Remove(ctx context.Context, id int64) error
}

type GroupHandler struct {
	admin GroupAdmin
}

func NewGroupHandler(admin GroupAdmin) *GroupHandler {
	return &GroupHandler{admin: admin}
}

func groupResponse(g models.TenantGroup) dto.GroupResponse {
	return dto.GroupResponse{ID: g.ID, Name: g.Name, AuthToken: g.AuthToken}
}

func (h *GroupHandler) List(c *gin.Context) {
	gs, err := h.admin.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.GroupResponse, 0, len(gs))
	for _, g := range gs {
		resp = append(resp, groupResponse(g))
	}
	c.JSON(http.StatusOK, dto.GroupListResponse{Groups: resp, Total: len(resp)})
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = string(groups.TypeFRS)
	}
	t, err := groups.ParseType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.admin.Add(c.Request.Context(), req.Name, t)
	switch {
	case errors.Is(err, groups.ErrExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, groupResponse(g))
}

func (h *GroupHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	err = h.admin.Remove(c.Request.Context(), id)
	switch {
	case errors.Is(err, reconcile.ErrTenantGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
