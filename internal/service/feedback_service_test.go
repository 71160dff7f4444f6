package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type feedbackRepoStub struct {
	feedbacks map[string]*models.Feedback
}

func newFeedbackRepoStub() *feedbackRepoStub {
	return &feedbackRepoStub{feedbacks: make(map[string]*models.Feedback)}
}

func (s *feedbackRepoStub) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = "feedback-1"
	}
	clone := *feedback
	s.feedbacks[feedback.ID] = &clone
	return nil
}

func (s *feedbackRepoStub) Update(ctx context.Context, feedback *models.Feedback) error {
	clone := *feedback
	s.feedbacks[feedback.ID] = &clone
	return nil
}

func (s *feedbackRepoStub) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	if feedback, ok := s.feedbacks[id]; ok {
		clone := *feedback
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *feedbackRepoStub) FindByBooking(ctx context.Context, bookingID string) (*models.Feedback, error) {
	for _, feedback := range s.feedbacks {
		if feedback.BookingID == bookingID {
			clone := *feedback
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func feedbackBookingStub(status models.BookingStatus, studentID string) *bookingRepoStub {
	bookings := newBookingRepoStub()
	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: studentID, ProfessorID: "prof-1", Status: status,
	}}
	return bookings
}

func TestFeedbackServiceCreateOnCompletedBooking(t *testing.T) {
	feedbacks := newFeedbackRepoStub()
	svc := NewFeedbackService(feedbacks, feedbackBookingStub(models.BookingStatusCompleted, "student-1"), newProfessorRepoStub(), validator.New(), nil)

	feedback, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{
		Rating: 5, Comment: "Great session", WouldRecommend: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "booking-1", feedback.BookingID)
	assert.Equal(t, "student-1", feedback.StudentID)
}

func TestFeedbackServiceCreateRejectedWhenNotCompleted(t *testing.T) {
	for _, status := range []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusConfirmed,
		models.BookingStatusCancelled,
	} {
		feedbacks := newFeedbackRepoStub()
		svc := NewFeedbackService(feedbacks, feedbackBookingStub(status, "student-1"), newProfessorRepoStub(), validator.New(), nil)

		_, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 4})
		require.Error(t, err, "status %s", status)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
		assert.Empty(t, feedbacks.feedbacks)
	}
}

func TestFeedbackServiceCreateForbiddenForNonOwner(t *testing.T) {
	svc := NewFeedbackService(newFeedbackRepoStub(), feedbackBookingStub(models.BookingStatusCompleted, "student-2"), newProfessorRepoStub(), validator.New(), nil)

	_, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 4})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceCreateDuplicateConflict(t *testing.T) {
	feedbacks := newFeedbackRepoStub()
	svc := NewFeedbackService(feedbacks, feedbackBookingStub(models.BookingStatusCompleted, "student-1"), newProfessorRepoStub(), validator.New(), nil)

	first, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 2})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Contains(t, typed.Message, first.ID)
}

func TestFeedbackServiceUpdateAuthorOnly(t *testing.T) {
	feedbacks := newFeedbackRepoStub()
	svc := NewFeedbackService(feedbacks, feedbackBookingStub(models.BookingStatusCompleted, "student-1"), newProfessorRepoStub(), validator.New(), nil)

	created, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 4})
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	_, err = svc.Update(context.Background(), other, created.ID, dto.UpdateFeedbackRequest{Rating: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), studentClaims(), created.ID, dto.UpdateFeedbackRequest{Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
}

func TestFeedbackServiceGetByBookingVisibleToOwningProfessor(t *testing.T) {
	feedbacks := newFeedbackRepoStub()
	professors := newProfessorRepoStub()
	professors.add(&models.Professor{ID: "prof-1", UserID: "prof-user-1", Active: true})
	svc := NewFeedbackService(feedbacks, feedbackBookingStub(models.BookingStatusCompleted, "student-1"), professors, validator.New(), nil)

	_, err := svc.Create(context.Background(), studentClaims(), "booking-1", dto.CreateFeedbackRequest{Rating: 5})
	require.NoError(t, err)

	owner := &models.JWTClaims{UserID: "prof-user-1", Role: models.RoleProfessor}
	feedback, err := svc.GetByBooking(context.Background(), owner, "booking-1")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", feedback.BookingID)

	foreign := &models.JWTClaims{UserID: "prof-user-2", Role: models.RoleProfessor}
	_, err = svc.GetByBooking(context.Background(), foreign, "booking-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
