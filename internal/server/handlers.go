package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
)

// Handlers exposes the engine and the node catalog over HTTP.
type Handlers struct {
	engine   *engine.Engine
	registry *engine.Registry
	logger   logger.Logger
}

func NewHandlers(eng *engine.Engine, registry *engine.Registry, log logger.Logger) *Handlers {
	return &Handlers{
		engine:   eng,
		registry: registry,
		logger:   log,
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handlers) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// GetAllNodes returns every registered node name with its schema. The catalog
// is tolerant: per-type schema failures land in the errors map and the call
// still returns 200 with the rest.
func (h *Handlers) GetAllNodes(c *gin.Context) {
	names := h.registry.List()
	schemas, schemaErrors := h.registry.Schemas()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"nodes":       names,
			"schemas":     schemas,
			"errors":      schemaErrors,
			"total_count": len(names),
		},
	})
}

func (h *Handlers) ListNodes(c *gin.Context) {
	names := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"nodes":       names,
			"total_count": len(names),
		},
	})
}

func (h *Handlers) GetNodeSchema(c *gin.Context) {
	nodeType := c.Param("type")
	schema, ok := h.registry.Schema(nodeType)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"detail": fmt.Sprintf("Node '%s' not found", nodeType),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    schema,
	})
}

// ExecuteFlow runs one workflow graph. Structural and credential problems map
// to 400 with a structured detail payload; node-level failures also map to
// 400 but carry the partial execution report.
func (h *Handlers) ExecuteFlow(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": "Invalid request payload: " + err.Error(),
		})
		return
	}

	report, err := h.engine.Run(c.Request.Context(), req)
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	if report.Failed() {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": gin.H{
				"success":        false,
				"errors":         report.Errors,
				"executed_nodes": report.Executed,
				"skipped_nodes":  report.Skipped,
				"message": fmt.Sprintf("Workflow execution failed with %d error(s). See 'errors' field for details.",
					len(report.Errors)),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"response_inputs": report.ResponseInputs,
			"executed_nodes":  report.Executed,
			"skipped_nodes":   report.Skipped,
			"errors":          report.Errors,
		},
	})
}

func (h *Handlers) writeRunError(c *gin.Context, err error) {
	var structural *engine.StructuralError
	if errors.As(err, &structural) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": structuralDetail(structural)})
		return
	}

	var credential *engine.CredentialError
	if errors.As(err, &credential) {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": gin.H{
				"message":                 credential.Message,
				"missing_credentials":     credential.MissingByNode,
				"node_info":               credential.NodeInfo,
				"errors":                  credential.PerNodeMessages,
				"all_missing_credentials": credential.AllMissing,
			},
		})
		return
	}

	h.logger.Error("workflow execution failed unexpectedly", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": "Failed to execute flow: " + err.Error(),
	})
}

// structuralDetail keeps rejection payloads shaped for the client: the
// entry/terminal check and the unresolved-dependency case carry structured
// context, the remaining shape errors are plain strings.
func structuralDetail(err *engine.StructuralError) interface{} {
	if err.ReceivedTypes != nil {
		return gin.H{
			"message":           err.Message,
			"received_types":    err.ReceivedTypes,
			"has_query_node":    err.HasEntry,
			"has_response_node": err.HasTerminal,
		}
	}
	if len(err.Unresolved) > 0 {
		return gin.H{
			"message":          err.Message,
			"unresolved_nodes": err.Unresolved,
		}
	}
	return err.Message
}
