package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// ReviewHandler exposes review submission and moderation endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Review a professor
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Professor ID"
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professors/{id}/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Update godoc
// @Summary Edit own review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.UpdateReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(c *gin.Context) {
	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.reviews.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByProfessor godoc
// @Summary Approved reviews for a professor
// @Tags Reviews
// @Produce json
// @Param id path string true "Professor ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professors/{id}/reviews [get]
func (h *ReviewHandler) ListByProfessor(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reviews, pagination, err := h.reviews.ListByProfessor(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// ListForModeration godoc
// @Summary Review moderation queue
// @Tags Reviews
// @Produce json
// @Param status query string false "Filter by moderation status"
// @Param professor_id query string false "Filter by professor"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/reviews [get]
func (h *ReviewHandler) ListForModeration(c *gin.Context) {
	var filter models.ReviewFilter
	filter.ProfessorID = c.Query("professor_id")
	if raw := c.Query("status"); raw != "" {
		status := models.ModerationStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown moderation status"))
			return
		}
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	reviews, pagination, err := h.reviews.ListForModeration(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Moderate godoc
// @Summary Approve or reject a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.ModerateReviewRequest true "Moderation decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reviews/{id}/moderate [post]
func (h *ReviewHandler) Moderate(c *gin.Context) {
	var req dto.ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.reviews.Moderate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}
