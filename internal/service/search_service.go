package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type searchProfessorRepository interface {
	Search(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error)
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

type searchCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type searchMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// SearchResult is the cached payload for one search page.
type SearchResult struct {
	Professors []models.Professor `json:"professors"`
	Pagination models.Pagination  `json:"pagination"`
	CacheHit   bool               `json:"-"`
}

// SearchConfig tunes the public professor search.
type SearchConfig struct {
	CacheTTL        time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// SearchService serves the public professor directory with a cache-aside
// layer in front of the search query.
type SearchService struct {
	professors searchProfessorRepository
	cache      searchCache
	metrics    searchMetrics
	logger     *zap.Logger
	config     SearchConfig
}

// NewSearchService constructs a SearchService.
func NewSearchService(professors searchProfessorRepository, cache searchCache, metrics searchMetrics, logger *zap.Logger, config SearchConfig) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 12
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = 50
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &SearchService{professors: professors, cache: cache, metrics: metrics, logger: logger, config: config}
}

// Search returns one page of matching professors. Identical queries inside
// the TTL window are served from Redis.
func (s *SearchService) Search(ctx context.Context, filter models.ProfessorFilter) (*SearchResult, error) {
	filter = s.normalize(filter)
	key := s.cacheKey(filter)

	if s.cache != nil {
		start := time.Now()
		var cached SearchResult
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.recordCache(true, time.Since(start))
			cached.CacheHit = true
			return &cached, nil
		}
		s.recordCache(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("search cache lookup failed", zap.Error(err))
		}
	}

	professors, total, err := s.professors.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search professors")
	}
	if professors == nil {
		professors = []models.Professor{}
	}

	result := &SearchResult{
		Professors: professors,
		Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, result, s.config.CacheTTL); err != nil {
			s.logger.Warn("search cache write failed", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}

	return result, nil
}

// GetProfessor returns one active professor profile for the public detail
// page.
func (s *SearchService) GetProfessor(ctx context.Context, id string) (*models.Professor, error) {
	professor, err := s.professors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if !professor.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
	}
	return professor, nil
}

// cacheInvalidator lets write-side services drop cached pages that their
// writes made stale. SearchService and DashboardService both satisfy it.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Invalidate drops every cached search page. Called after writes that change
// search-visible professor data.
func (s *SearchService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "search:professors:*"); err != nil {
		s.logger.Warn("search cache invalidation failed", zap.Error(err))
	}
}

func (s *SearchService) normalize(filter models.ProfessorFilter) models.ProfessorFilter {
	switch filter.SortBy {
	case models.ProfessorSortRating, models.ProfessorSortPrice, models.ProfessorSortName:
	default:
		filter.SortBy = models.ProfessorSortRating
	}
	order := strings.ToLower(filter.SortOrder)
	if order != "asc" && order != "desc" {
		if filter.SortBy == models.ProfessorSortName {
			order = "asc"
		} else {
			order = "desc"
		}
	}
	filter.SortOrder = order

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.config.DefaultPageSize
	}
	if filter.PageSize > s.config.MaxPageSize {
		filter.PageSize = s.config.MaxPageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return filter
}

func (s *SearchService) cacheKey(filter models.ProfessorFilter) string {
	minRating := ""
	if filter.MinRating != nil {
		minRating = fmt.Sprintf("%.2f", *filter.MinRating)
	}
	maxRate := ""
	if filter.MaxHourlyRate != nil {
		maxRate = fmt.Sprintf("%.2f", *filter.MaxHourlyRate)
	}
	return fmt.Sprintf("search:professors:%s:%s:%s:%s:%s:%s:%s:%s:%d:%d",
		filter.SubjectID, filter.LevelID, filter.CityID, minRating, maxRate,
		strings.ToLower(filter.Search), filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize)
}

func (s *SearchService) recordCache(hit bool, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, duration)
	}
}
