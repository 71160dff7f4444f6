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

type paymentBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.BookingDetail, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// PaymentService applies admin payment transitions along the whitelist:
// pending to paid or failed, failed back to paid, paid to refunded.
type PaymentService struct {
	bookings  paymentBookingRepository
	audit     bookingAuditRepository
	dashboard cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(bookings paymentBookingRepository, audit bookingAuditRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{bookings: bookings, audit: audit, validator: validate, logger: logger}
}

// BindDashboardCache attaches the dashboard cache so payment transitions
// drop the stale revenue summary.
func (s *PaymentService) BindDashboardCache(dashboard cacheInvalidator) {
	s.dashboard = dashboard
}

// UpdateStatus moves a booking's payment state. Transitions outside the
// whitelist return a precondition failure.
func (s *PaymentService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, bookingID string, req dto.UpdatePaymentStatusRequest) (*models.BookingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	detail, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	next := models.PaymentStatus(req.Status)
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	if !detail.PaymentStatus.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("payment cannot move from %s to %s", detail.PaymentStatus, next))
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, bookingID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}

	if s.audit != nil && claims != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionPaymentUpdate,
			Resource:   "booking",
			ResourceID: &bookingID,
			OldValues:  []byte(fmt.Sprintf(`{"payment_status":%q}`, detail.PaymentStatus)),
			NewValues:  []byte(fmt.Sprintf(`{"payment_status":%q,"reason":%q}`, next, req.Reason)),
		}); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}

	detail.PaymentStatus = next
	return detail, nil
}
