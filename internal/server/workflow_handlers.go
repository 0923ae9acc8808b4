package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowgraph-go/internal/workflows"
	"github.com/flowgraph-go/pkg/logger"
)

// WorkflowHandlers exposes saved workflow definitions. They are nil when the
// server runs without a database.
type WorkflowHandlers struct {
	service *workflows.Service
	logger  logger.Logger
}

func NewWorkflowHandlers(service *workflows.Service, log logger.Logger) *WorkflowHandlers {
	return &WorkflowHandlers{service: service, logger: log}
}

type workflowPayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

func (h *WorkflowHandlers) Create(c *gin.Context) {
	var payload workflowPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request payload: " + err.Error()})
		return
	}

	wf, err := h.service.Create(c.Request.Context(), payload.Name, payload.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": wf})
}

func (h *WorkflowHandlers) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list workflows", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list workflows"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"workflows": items, "total_count": len(items)},
	})
}

func (h *WorkflowHandlers) Get(c *gin.Context) {
	wf, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": wf})
}

func (h *WorkflowHandlers) Update(c *gin.Context) {
	var payload workflowPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request payload: " + err.Error()})
		return
	}

	wf, err := h.service.Update(c.Request.Context(), c.Param("id"), payload.Name, payload.Data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": wf})
}

func (h *WorkflowHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WorkflowHandlers) writeError(c *gin.Context, err error) {
	if errors.Is(err, workflows.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Workflow not found"})
		return
	}
	h.logger.Error("workflow operation failed", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}
