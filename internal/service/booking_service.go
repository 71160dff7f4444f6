package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.BookingDetail, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	HasOverlap(ctx context.Context, professorID string, startAt, endAt time.Time, excludeID string) (bool, error)
}

type bookingProfessorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Professor, error)
}

type bookingAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BookingService owns the booking lifecycle: creation with server-side
// pricing, edits, cancellation and the professor-side transitions.
type BookingService struct {
	bookings   bookingRepository
	professors bookingProfessorRepository
	audit      bookingAuditRepository
	dashboard  cacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings bookingRepository, professors bookingProfessorRepository, audit bookingAuditRepository, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{
		bookings:   bookings,
		professors: professors,
		audit:      audit,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// BindDashboardCache attaches the dashboard cache so booking writes drop the
// stale status counts.
func (s *BookingService) BindDashboardCache(dashboard cacheInvalidator) {
	s.dashboard = dashboard
}

// Create books a session for the authenticated student or parent. End time
// and total price are derived from the professor's hourly rate, never taken
// from the request.
func (s *BookingService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateBookingRequest) (*models.BookingDetail, error) {
	if claims == nil || !claims.Role.IsBooker() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and parents can create bookings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	startAt, err := parseBookingStart(req.Date, req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date or time")
	}
	if !startAt.Truncate(24 * time.Hour).After(s.now().Truncate(24 * time.Hour)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking date must be after today")
	}

	professor, err := s.professors.FindByID(ctx, req.ProfessorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if !professor.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
	}

	endAt := startAt.Add(time.Duration(req.DurationMinutes) * time.Minute)

	overlap, err := s.bookings.HasOverlap(ctx, professor.ID, startAt, endAt, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	booking := &models.Booking{
		StudentID:       claims.UserID,
		ProfessorID:     professor.ID,
		SubjectID:       req.SubjectID,
		LevelID:         req.LevelID,
		StartAt:         startAt,
		EndAt:           endAt,
		DurationMinutes: req.DurationMinutes,
		TotalPrice:      professor.HourlyRate * float64(req.DurationMinutes) / 60,
		Status:          models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		Notes:           req.Notes,
		BookingType:     req.BookingType,
	}
	if booking.BookingType == "" {
		booking.BookingType = "online"
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	s.invalidateDashboard(ctx)

	s.recordAudit(ctx, claims.UserID, models.AuditActionBookingCreate, booking.ID,
		fmt.Sprintf(`{"professor_id":%q,"start_at":%q}`, booking.ProfessorID, booking.StartAt.Format(time.RFC3339)))

	return s.Get(ctx, claims, booking.ID)
}

// Update reschedules an existing booking. Only the owner may edit, the price
// and end time are recomputed, and any edit drops the booking back to pending
// so the professor re-confirms the new slot.
func (s *BookingService) Update(ctx context.Context, claims *models.JWTClaims, bookingID string, req dto.UpdateBookingRequest) (*models.BookingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	detail, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if claims == nil || detail.StudentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking owner can edit it")
	}
	if detail.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "completed or cancelled bookings cannot be edited")
	}

	startAt, err := parseBookingStart(req.Date, req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date or time")
	}
	if !startAt.Truncate(24 * time.Hour).After(s.now().Truncate(24 * time.Hour)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking date must be after today")
	}

	professor, err := s.professors.FindByID(ctx, detail.ProfessorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}

	endAt := startAt.Add(time.Duration(req.DurationMinutes) * time.Minute)

	overlap, err := s.bookings.HasOverlap(ctx, detail.ProfessorID, startAt, endAt, bookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	updated := detail.Booking
	updated.SubjectID = req.SubjectID
	updated.LevelID = req.LevelID
	updated.StartAt = startAt
	updated.EndAt = endAt
	updated.DurationMinutes = req.DurationMinutes
	updated.TotalPrice = professor.HourlyRate * float64(req.DurationMinutes) / 60
	updated.Notes = req.Notes
	if req.BookingType != "" {
		updated.BookingType = req.BookingType
	}
	updated.Status = models.BookingStatusPending

	if err := s.bookings.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	s.invalidateDashboard(ctx)

	s.recordAudit(ctx, claims.UserID, models.AuditActionBookingUpdate, bookingID,
		fmt.Sprintf(`{"start_at":%q}`, startAt.Format(time.RFC3339)))

	return s.Get(ctx, claims, bookingID)
}

// Cancel cancels a pending or confirmed booking. The owner and admins may
// cancel; completed and already-cancelled bookings are left untouched.
func (s *BookingService) Cancel(ctx context.Context, claims *models.JWTClaims, bookingID string) error {
	detail, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if claims == nil || (detail.StudentID != claims.UserID && claims.Role != models.RoleAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the booking owner can cancel it")
	}
	if !detail.Status.CanTransitionTo(models.BookingStatusCancelled) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("booking in status %s cannot be cancelled", detail.Status))
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	s.invalidateDashboard(ctx)

	s.recordAudit(ctx, claims.UserID, models.AuditActionBookingCancel, bookingID,
		fmt.Sprintf(`{"previous_status":%q}`, detail.Status))
	return nil
}

// Confirm moves a pending booking to confirmed. Only the professor the
// booking belongs to may confirm.
func (s *BookingService) Confirm(ctx context.Context, claims *models.JWTClaims, bookingID string) error {
	return s.professorTransition(ctx, claims, bookingID, models.BookingStatusConfirmed)
}

// Complete marks a confirmed booking as held. Only the booked professor may
// complete.
func (s *BookingService) Complete(ctx context.Context, claims *models.JWTClaims, bookingID string) error {
	return s.professorTransition(ctx, claims, bookingID, models.BookingStatusCompleted)
}

// Get returns a booking detail visible to its student, its professor or an
// admin.
func (s *BookingService) Get(ctx context.Context, claims *models.JWTClaims, bookingID string) (*models.BookingDetail, error) {
	detail, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canView(ctx, claims, detail)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}
	return detail, nil
}

// List returns the caller's bookings: students and parents see their own,
// professors the ones booked with them, admins everything.
func (s *BookingService) List(ctx context.Context, claims *models.JWTClaims, filter models.BookingFilter) ([]models.BookingDetail, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	switch {
	case claims.Role.IsBooker():
		filter.StudentID = claims.UserID
		filter.ProfessorID = ""
	case claims.Role == models.RoleProfessor:
		professor, err := s.professors.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "professor profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor profile")
		}
		filter.ProfessorID = professor.ID
		filter.StudentID = ""
	case claims.Role == models.RoleAdmin:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *BookingService) professorTransition(ctx context.Context, claims *models.JWTClaims, bookingID string, next models.BookingStatus) error {
	if claims == nil || claims.Role != models.RoleProfessor {
		return appErrors.Clone(appErrors.ErrForbidden, "only professors can update booking status")
	}

	detail, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	professor, err := s.professors.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "professor profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor profile")
	}
	if detail.ProfessorID != professor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another professor")
	}

	if !detail.Status.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("booking cannot move from %s to %s", detail.Status, next))
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, next); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	s.invalidateDashboard(ctx)

	s.recordAudit(ctx, claims.UserID, models.AuditActionBookingUpdate, bookingID,
		fmt.Sprintf(`{"status":%q}`, next))
	return nil
}

func (s *BookingService) invalidateDashboard(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

func (s *BookingService) loadBooking(ctx context.Context, bookingID string) (*models.BookingDetail, error) {
	detail, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return detail, nil
}

func (s *BookingService) canView(ctx context.Context, claims *models.JWTClaims, detail *models.BookingDetail) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.Role == models.RoleAdmin || detail.StudentID == claims.UserID {
		return true, nil
	}
	if claims.Role == models.RoleProfessor {
		professor, err := s.professors.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor profile")
		}
		return detail.ProfessorID == professor.ID, nil
	}
	return false, nil
}

func (s *BookingService) recordAudit(ctx context.Context, userID, action, resourceID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "booking",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record booking audit log", zap.Error(err))
	}
}

// parseBookingStart combines the date and wall-clock start into a UTC
// timestamp. A session may roll past midnight; the end timestamp carries the
// next day naturally.
func parseBookingStart(date, startTime string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04", date+" "+startTime)
}
