package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// PreferenceHandler exposes student search preference endpoints.
type PreferenceHandler struct {
	preferences *service.PreferenceService
}

// NewPreferenceHandler constructs PreferenceHandler.
func NewPreferenceHandler(preferences *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences}
}

// Get godoc
// @Summary Current student preferences
// @Tags Preferences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/preferences [get]
func (h *PreferenceHandler) Get(c *gin.Context) {
	preferences, err := h.preferences.Get(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preferences, nil)
}

// SyncSubjects godoc
// @Summary Replace preferred subjects
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.SyncPreferencesRequest true "Subject IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/preferences/subjects [put]
func (h *PreferenceHandler) SyncSubjects(c *gin.Context) {
	h.sync(c, h.preferences.SyncSubjects)
}

// SyncLevels godoc
// @Summary Replace preferred levels
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.SyncPreferencesRequest true "Level IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/preferences/levels [put]
func (h *PreferenceHandler) SyncLevels(c *gin.Context) {
	h.sync(c, h.preferences.SyncLevels)
}

// SyncCities godoc
// @Summary Replace preferred cities
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.SyncPreferencesRequest true "City IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/preferences/cities [put]
func (h *PreferenceHandler) SyncCities(c *gin.Context) {
	h.sync(c, h.preferences.SyncCities)
}

type preferenceSyncFunc func(ctx context.Context, claims *models.JWTClaims, req dto.SyncPreferencesRequest) ([]string, error)

func (h *PreferenceHandler) sync(c *gin.Context, fn preferenceSyncFunc) {
	var req dto.SyncPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ids, err := fn(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"ids": ids}, nil)
}
