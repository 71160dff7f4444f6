package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	FindByProfessorAndStudent(ctx context.Context, professorID, studentID string) (*models.Review, error)
	ListByProfessor(ctx context.Context, professorID string, page, pageSize int) ([]models.Review, int, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	SetModeration(ctx context.Context, id string, status models.ModerationStatus, verified, featured *bool) error
}

type reviewProfessorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	RefreshRating(ctx context.Context, professorID string) error
}

type reviewAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ReviewService owns review submission, the one-review-per-professor rule,
// admin moderation and the professor rating rollup.
type ReviewService struct {
	reviews           reviewRepository
	professors        reviewProfessorRepository
	audit             reviewAuditRepository
	searchCache       cacheInvalidator
	validator         *validator.Validate
	logger            *zap.Logger
	moderationEnabled bool
}

// NewReviewService constructs a ReviewService.
func NewReviewService(reviews reviewRepository, professors reviewProfessorRepository, audit reviewAuditRepository, validate *validator.Validate, logger *zap.Logger, moderationEnabled bool) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{
		reviews:           reviews,
		professors:        professors,
		audit:             audit,
		validator:         validate,
		logger:            logger,
		moderationEnabled: moderationEnabled,
	}
}

// BindSearchCache attaches the search cache so rating changes drop stale
// search pages immediately instead of waiting out the TTL.
func (s *ReviewService) BindSearchCache(search cacheInvalidator) {
	s.searchCache = search
}

// Create submits a review for a professor. A student gets exactly one review
// per professor; a duplicate attempt returns a conflict carrying the existing
// review's ID so clients can switch to editing it.
func (s *ReviewService) Create(ctx context.Context, claims *models.JWTClaims, professorID string, req dto.CreateReviewRequest) (*models.Review, error) {
	if claims == nil || !claims.Role.IsBooker() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and parents can review professors")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	if _, err := s.professors.FindByID(ctx, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}

	existing, err := s.reviews.FindByProfessorAndStudent(ctx, professorID, claims.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("review already exists: %s", existing.ID))
	}

	review := &models.Review{
		ProfessorID:    professorID,
		StudentID:      claims.UserID,
		Rating:         req.Rating,
		Title:          req.Title,
		Comment:        req.Comment,
		WouldRecommend: req.WouldRecommend,
		Status:         s.initialStatus(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	if review.Status == models.ModerationApproved {
		s.refreshRating(ctx, professorID)
	}
	return review, nil
}

// Update edits the caller's own review. An edit goes back through moderation
// when moderation is enabled.
func (s *ReviewService) Update(ctx context.Context, claims *models.JWTClaims, reviewID string, req dto.UpdateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if claims == nil || review.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the review author can edit it")
	}

	review.Rating = req.Rating
	review.Title = req.Title
	review.Comment = req.Comment
	review.WouldRecommend = req.WouldRecommend
	review.Status = s.initialStatus()

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}

	s.refreshRating(ctx, review.ProfessorID)
	return review, nil
}

// Delete removes a review. Allowed for the author and admins.
func (s *ReviewService) Delete(ctx context.Context, claims *models.JWTClaims, reviewID string) error {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if claims == nil || (review.StudentID != claims.UserID && claims.Role != models.RoleAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the review author can delete it")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}

	s.refreshRating(ctx, review.ProfessorID)
	return nil
}

// ListByProfessor returns the approved reviews shown on a public profile.
func (s *ReviewService) ListByProfessor(ctx context.Context, professorID string, page, pageSize int) ([]models.Review, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	reviews, total, err := s.reviews.ListByProfessor(ctx, professorID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListForModeration returns reviews for the admin moderation queue.
func (s *ReviewService) ListForModeration(ctx context.Context, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Moderate applies an admin decision and refreshes the professor's rating so
// only approved reviews count.
func (s *ReviewService) Moderate(ctx context.Context, claims *models.JWTClaims, reviewID string, req dto.ModerateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid moderation payload")
	}

	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	status := models.ModerationStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown moderation status")
	}

	if err := s.reviews.SetModeration(ctx, reviewID, status, req.Verified, req.Featured); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to moderate review")
	}

	s.refreshRating(ctx, review.ProfessorID)

	if s.audit != nil && claims != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionReviewModerate,
			Resource:   "review",
			ResourceID: &reviewID,
			NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, status)),
		}); err != nil {
			s.logger.Warn("failed to record moderation audit log", zap.Error(err))
		}
	}

	return s.loadReview(ctx, reviewID)
}

func (s *ReviewService) initialStatus() models.ModerationStatus {
	if s.moderationEnabled {
		return models.ModerationPending
	}
	return models.ModerationApproved
}

func (s *ReviewService) loadReview(ctx context.Context, reviewID string) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) refreshRating(ctx context.Context, professorID string) {
	if err := s.professors.RefreshRating(ctx, professorID); err != nil {
		s.logger.Warn("failed to refresh professor rating",
			zap.String("professor_id", professorID), zap.Error(err))
	}
	if s.searchCache != nil {
		s.searchCache.Invalidate(ctx)
	}
}
