package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// BookingHandler exposes booking lifecycle endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	exports  *service.ExportService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *service.BookingService, exports *service.ExportService) *BookingHandler {
	return &BookingHandler{bookings: bookings, exports: exports}
}

// Create godoc
// @Summary Book a tutoring session
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.bookings.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Reschedule a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.UpdateBookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.bookings.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c *gin.Context) {
	if err := h.bookings.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Confirm godoc
// @Summary Confirm a pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	if err := h.bookings.Confirm(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Mark a confirmed booking as held
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	if err := h.bookings.Complete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Booking detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	detail, err := h.bookings.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List bookings visible to the caller
// @Tags Bookings
// @Produce json
// @Param status query string false "Filter by status"
// @Param payment_status query string false "Filter by payment status"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	if raw := c.Query("status"); raw != "" {
		status := models.BookingStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown booking status"))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("payment_status"); raw != "" {
		status := models.PaymentStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown payment status"))
			return
		}
		filter.PaymentStatus = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		end := to.Add(24 * time.Hour)
		filter.To = &end
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	bookings, pagination, err := h.bookings.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Receipt godoc
// @Summary Download a booking receipt PDF
// @Tags Bookings
// @Produce application/pdf
// @Param id path string true "Booking ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /bookings/{id}/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	payload, filename, err := h.exports.Receipt(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}
