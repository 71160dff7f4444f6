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

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	Update(ctx context.Context, feedback *models.Feedback) error
	FindByID(ctx context.Context, id string) (*models.Feedback, error)
	FindByBooking(ctx context.Context, bookingID string) (*models.Feedback, error)
}

type feedbackBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.BookingDetail, error)
}

type feedbackProfessorRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Professor, error)
}

// FeedbackService owns the post-session feedback tied 1:1 to a completed
// booking.
type FeedbackService struct {
	feedbacks  feedbackRepository
	bookings   feedbackBookingRepository
	professors feedbackProfessorRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(feedbacks feedbackRepository, bookings feedbackBookingRepository, professors feedbackProfessorRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{feedbacks: feedbacks, bookings: bookings, professors: professors, validator: validate, logger: logger}
}

// Create leaves feedback on a booking. The booking must be completed and
// owned by the caller; a booking carries at most one feedback.
func (s *FeedbackService) Create(ctx context.Context, claims *models.JWTClaims, bookingID string, req dto.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if claims == nil || booking.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking owner can leave feedback")
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "feedback is only allowed on completed bookings")
	}

	existing, err := s.feedbacks.FindByBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing feedback")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("feedback already exists: %s", existing.ID))
	}

	feedback := &models.Feedback{
		BookingID:      bookingID,
		StudentID:      claims.UserID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		WouldRecommend: req.WouldRecommend,
	}
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}
	return feedback, nil
}

// Update edits existing feedback. Author-only.
func (s *FeedbackService) Update(ctx context.Context, claims *models.JWTClaims, feedbackID string, req dto.UpdateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	feedback, err := s.feedbacks.FindByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	if claims == nil || feedback.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the feedback author can edit it")
	}

	feedback.Rating = req.Rating
	feedback.Comment = req.Comment
	feedback.WouldRecommend = req.WouldRecommend

	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback")
	}
	return feedback, nil
}

// GetByBooking returns the feedback left on a booking, visible to the
// booking's student, its professor or an admin. Visibility follows the
// booking itself, so callers resolve the booking first.
func (s *FeedbackService) GetByBooking(ctx context.Context, claims *models.JWTClaims, bookingID string) (*models.Feedback, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	allowed, err := s.canView(ctx, claims, booking)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}

	feedback, err := s.feedbacks.FindByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	return feedback, nil
}

func (s *FeedbackService) canView(ctx context.Context, claims *models.JWTClaims, booking *models.BookingDetail) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.Role == models.RoleAdmin || booking.StudentID == claims.UserID {
		return true, nil
	}
	if claims.Role == models.RoleProfessor && s.professors != nil {
		professor, err := s.professors.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor profile")
		}
		return booking.ProfessorID == professor.ID, nil
	}
	return false, nil
}
