package handlers

import (
	"net/http"

	"invoiceflow/internal/httpx"
	"invoiceflow/internal/services"
)

type AnalyticsHandler struct {
	Svc *services.AnalyticsService
}

func NewAnalyticsHandler(svc *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Svc: svc}
}

// Dashboard: GET /analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Dashboard()
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
