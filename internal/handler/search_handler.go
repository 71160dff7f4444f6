package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/middleware"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/repository"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
)

// SearchHandler exposes the public professor catalogue and taxonomy lists.
type SearchHandler struct {
	search     *service.SearchService
	taxonomies *repository.TaxonomyRepository
}

// NewSearchHandler constructs SearchHandler.
func NewSearchHandler(search *service.SearchService, taxonomies *repository.TaxonomyRepository) *SearchHandler {
	return &SearchHandler{search: search, taxonomies: taxonomies}
}

// Search godoc
// @Summary Search professors
// @Tags Search
// @Produce json
// @Param subject_id query string false "Subject filter"
// @Param level_id query string false "Level filter"
// @Param city_id query string false "City filter"
// @Param min_rating query number false "Minimum rating"
// @Param max_hourly_rate query number false "Maximum hourly rate"
// @Param search query string false "Free-text search on name and bio"
// @Param sort_by query string false "Sort field (rating, price, name)"
// @Param sort_order query string false "Sort order (asc, desc)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *SearchHandler) Search(c *gin.Context) {
	start := time.Now()
	filter, err := parseProfessorFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.search.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.CacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result.Professors, &result.Pagination, meta)
}

func parseProfessorFilter(c *gin.Context) (models.ProfessorFilter, error) {
	var filter models.ProfessorFilter
	filter.SubjectID = c.Query("subject_id")
	filter.LevelID = c.Query("level_id")
	filter.CityID = c.Query("city_id")
	filter.Search = c.Query("search")
	if filter.Search == "" {
		// q kept as an alias for older clients
		filter.Search = c.Query("q")
	}
	filter.SortBy = models.ProfessorSortField(c.Query("sort_by"))
	filter.SortOrder = c.Query("sort_order")

	if raw := c.Query("min_rating"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 || value > 5 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "min_rating must be between 0 and 5")
		}
		filter.MinRating = &value
	}
	if raw := c.Query("max_hourly_rate"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "max_hourly_rate must be positive")
		}
		filter.MaxHourlyRate = &value
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "12")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}

// GetProfessor godoc
// @Summary Professor public profile
// @Tags Search
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id} [get]
func (h *SearchHandler) GetProfessor(c *gin.Context) {
	professor, err := h.search.GetProfessor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Taxonomies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SearchHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.taxonomies.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListLevels godoc
// @Summary List levels
// @Tags Taxonomies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels [get]
func (h *SearchHandler) ListLevels(c *gin.Context) {
	levels, err := h.taxonomies.ListLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// ListCities godoc
// @Summary List cities
// @Tags Taxonomies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cities [get]
func (h *SearchHandler) ListCities(c *gin.Context) {
	cities, err := h.taxonomies.ListCities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cities, nil)
}
