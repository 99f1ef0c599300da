package httpapi

import (
	"net/http"

	"societysync/internal/service"

	"go.uber.org/zap"
)

// DashboardHandler 首页统计 Handler
type DashboardHandler struct {
	dashboardService service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler 创建首页统计 Handler
func NewDashboardHandler(dashboardService service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

// Resident GET /api/v1/dashboard
func (h *DashboardHandler) Resident(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	stats, err := h.dashboardService.ResidentStats(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Society GET /admin/api/v1/dashboard
func (h *DashboardHandler) Society(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	stats, err := h.dashboardService.SocietyStats(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}
