package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type dashboardRepository interface {
	CountBookingsByStatus(ctx context.Context) ([]models.BookingStatusCount, error)
	PaidRevenue(ctx context.Context) (float64, error)
	PendingReviews(ctx context.Context) (int, error)
	TopProfessors(ctx context.Context, limit int) ([]models.TopProfessor, error)
}

const dashboardCacheKey = "dashboard:summary"

// DashboardService assembles the admin overview with a cache-aside layer so
// repeated loads do not re-run the aggregate queries.
type DashboardService struct {
	repo    dashboardRepository
	cache   searchCache
	metrics searchMetrics
	logger  *zap.Logger
	ttl     time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache searchCache, metrics searchMetrics, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// Summary returns the cached admin overview, rebuilding it on a miss. The
// second return value reports whether the response came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil {
		start := time.Now()
		var cached models.DashboardSummary
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return &cached, true, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache lookup failed", zap.Error(err))
		}
	}

	counts, err := s.repo.CountBookingsByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookings")
	}
	revenue, err := s.repo.PaidRevenue(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum revenue")
	}
	pending, err := s.repo.PendingReviews(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending reviews")
	}
	top, err := s.repo.TopProfessors(ctx, 5)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list top professors")
	}

	if counts == nil {
		counts = []models.BookingStatusCount{}
	}
	if top == nil {
		top = []models.TopProfessor{}
	}

	summary := &models.DashboardSummary{
		BookingsByStatus: counts,
		PaidRevenue:      revenue,
		PendingReviews:   pending,
		TopProfessors:    top,
		GeneratedAt:      time.Now().UTC(),
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}

	return summary, false, nil
}

// Invalidate drops the cached summary after writes that change the numbers.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
