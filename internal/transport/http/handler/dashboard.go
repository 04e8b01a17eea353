package handler

import (
	"net/http"

	"github.com/neuroscan-api/internal/application/dashboard"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/transport/http/middleware"
)

// DashboardHandler serves the profile, site statistics and visitor counter.
type DashboardHandler struct {
	svc dashboard.Service
}

func NewDashboardHandler(svc dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	acc, err := h.svc.Profile(r.Context(), accountID)
	if err != nil {
		httpError(w, err, messages{domain.ErrNotFound: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, toUserView(acc))
}

func (h *DashboardHandler) PublicStatistics(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.PublicStatistics(r.Context())
	if err != nil {
		httpError(w, err, messages{nil: "Failed to load statistics"})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// RecordVisitor counts a page visit. The body is optional; the User-Agent
// header stands in when it carries no userAgent.
func (h *DashboardHandler) RecordVisitor(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordVisitorRequest
	_ = decodeBody(r, &req)
	if req.UserAgent == "" {
		req.UserAgent = r.Header.Get("User-Agent")
	}

	visit, err := h.svc.RecordVisitor(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		httpError(w, err, messages{nil: "Failed to record visitor"})
		return
	}
	writeJSON(w, http.StatusOK, VisitorEnvelope{
		Success:       true,
		Duplicate:     visit.Duplicate,
		TotalVisitors: visit.TotalVisitors,
	})
}
