// Package handler exposes the dashboard chart endpoints.
package handler

import (
	"net/http"

	"github.com/docflow/docflow-backend/internal/dashboard/service"
	"github.com/docflow/docflow-backend/pkg/httputil"
	"github.com/docflow/docflow-backend/pkg/logger"
)

// Handler handles dashboard chart endpoints
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// New creates a new dashboard handler
func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// Overview returns the per-type card totals
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, overview)
}

// GenderDistribution returns the identity card gender chart
func (h *Handler) GenderDistribution(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.GenderDistribution(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, slices)
}

// CitiesDistribution returns the identity card city chart
func (h *Handler) CitiesDistribution(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.CitiesDistribution(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, slices)
}

// LicenseCategories returns the driving-license category chart
func (h *Handler) LicenseCategories(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.LicenseCategories(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, slices)
}

// CarUsageTypes returns the vehicle usage chart
func (h *Handler) CarUsageTypes(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.CarUsageTypes(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, slices)
}

// MonthlyStats returns the monthly processing series
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MonthlyStats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// DailyStats returns the daily processing series
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DailyStats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// Essential returns the reduced dashboard payload
func (h *Handler) Essential(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Essential(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

// Dashboard returns every chart in one payload
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}
