package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/page"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// DashboardHandler exposes the per-user home statistics.
type DashboardHandler struct {
	dashboard *page.Dashboard
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(dashboard *page.Dashboard) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

type statUpdateRequest struct {
	Field string `json:"field" validate:"required,oneof=discCount courseCount lastTwoRounds"`
	Value any    `json:"value"`
}

// Stats returns the fresh statistics for :userID.
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	stats, ok := h.dashboard.Stats(c.Request.Context(), userID)
	if !ok {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Update overlays one statistic for :userID.
func (h *DashboardHandler) Update(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))

	var req statUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.dashboard.Update(c.Request.Context(), userID, req.Field, req.Value); err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	stats, _ := h.dashboard.Stats(c.Request.Context(), userID)
	response.Success(c, http.StatusOK, stats)
}
