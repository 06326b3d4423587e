package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/finsight/middleware"
	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/service"
)

type UsageHandler struct {
	usage *service.UsageTracker
}

func NewUsageHandler(usage *service.UsageTracker) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Report returns the tenant's billable usage for the last N days
// (default 30).
func (h *UsageHandler) Report(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	report := h.usage.Report(tenant, days)
	if report == nil {
		report = []model.UsageDay{}
	}

	total := 0.0
	for _, day := range report {
		total += day.TotalCost
	}

	c.JSON(http.StatusOK, gin.H{
		"usage":      report,
		"total_cost": total,
		"days":       days,
	})
}
