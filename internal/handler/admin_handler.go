package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/middleware"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// AdminHandler exposes the operational dashboard and payment reconciliation.
type AdminHandler struct {
	dashboard *service.DashboardService
	payments  *service.PaymentService
	metrics   *service.MetricsService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(dashboard *service.DashboardService, payments *service.PaymentService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, payments: payments, metrics: metrics}
}

// Dashboard godoc
// @Summary Operational summary
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// SystemMetrics godoc
// @Summary Runtime metrics snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard/system [get]
func (h *AdminHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

// UpdatePayment godoc
// @Summary Record a payment status change
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.UpdatePaymentStatusRequest true "Payment status"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/bookings/{id}/payment [post]
func (h *AdminHandler) UpdatePayment(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.payments.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
