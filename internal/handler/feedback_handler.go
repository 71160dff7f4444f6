package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// FeedbackHandler exposes private session feedback endpoints.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Create godoc
// @Summary Leave feedback on a completed booking
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.CreateFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req dto.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feedback, err := h.feedback.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// Update godoc
// @Summary Edit own feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.UpdateFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /feedback/{id} [put]
func (h *FeedbackHandler) Update(c *gin.Context) {
	var req dto.UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feedback, err := h.feedback.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// GetByBooking godoc
// @Summary Feedback attached to a booking
// @Tags Feedback
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/feedback [get]
func (h *FeedbackHandler) GetByBooking(c *gin.Context) {
	feedback, err := h.feedback.GetByBooking(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}
