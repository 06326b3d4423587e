package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/finsight/middleware"
	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/service"
)

type AnalyzeHandler struct {
	analysis *service.AnalysisService
}

func NewAnalyzeHandler(analysis *service.AnalysisService) *AnalyzeHandler {
	return &AnalyzeHandler{analysis: analysis}
}

type AnalyzeRequest struct {
	Prompt  string   `json:"prompt" binding:"required"`
	FileIDs []string `json:"file_ids" binding:"required,min=1"`
}

// Submit runs an analysis request to completion and returns the terminal
// record. The record stays readable via Status until retention expires.
func (h *AnalyzeHandler) Submit(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt and file_ids are required"})
		return
	}

	record := h.analysis.Submit(c.Request.Context(), tenant, req.Prompt, req.FileIDs)
	if record.Status == model.StatusFailed {
		c.JSON(http.StatusUnprocessableEntity, record)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Status returns the current state of an analysis request. Another tenant's
// request yields 403, a missing or expired one 404.
func (h *AnalyzeHandler) Status(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	record, err := h.analysis.GetStatus(tenant, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		case errors.Is(err, service.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analysis"})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}
