package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type bookingRepoStub struct {
	bookings map[string]*models.BookingDetail
	overlap  bool
	created  *models.Booking
	updated  *models.Booking
	statuses map[string]models.BookingStatus
	err      error
}

func newBookingRepoStub() *bookingRepoStub {
	return &bookingRepoStub{
		bookings: make(map[string]*models.BookingDetail),
		statuses: make(map[string]models.BookingStatus),
	}
}

func (s *bookingRepoStub) Create(ctx context.Context, booking *models.Booking) error {
	if s.err != nil {
		return s.err
	}
	if booking.ID == "" {
		booking.ID = "booking-new"
	}
	s.created = booking
	s.bookings[booking.ID] = &models.BookingDetail{Booking: *booking}
	return nil
}

func (s *bookingRepoStub) Update(ctx context.Context, booking *models.Booking) error {
	if s.err != nil {
		return s.err
	}
	s.updated = booking
	s.bookings[booking.ID] = &models.BookingDetail{Booking: *booking}
	return nil
}

func (s *bookingRepoStub) FindByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if detail, ok := s.bookings[id]; ok {
		clone := *detail
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingRepoStub) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	out := []models.BookingDetail{}
	for _, detail := range s.bookings {
		if filter.StudentID != "" && detail.StudentID != filter.StudentID {
			continue
		}
		if filter.ProfessorID != "" && detail.ProfessorID != filter.ProfessorID {
			continue
		}
		out = append(out, *detail)
	}
	return out, len(out), nil
}

func (s *bookingRepoStub) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if s.err != nil {
		return s.err
	}
	s.statuses[id] = status
	if detail, ok := s.bookings[id]; ok {
		detail.Status = status
	}
	return nil
}

func (s *bookingRepoStub) HasOverlap(ctx context.Context, professorID string, startAt, endAt time.Time, excludeID string) (bool, error) {
	return s.overlap, nil
}

type professorRepoStub struct {
	professors map[string]*models.Professor
	byUser     map[string]*models.Professor
}

func newProfessorRepoStub() *professorRepoStub {
	return &professorRepoStub{
		professors: make(map[string]*models.Professor),
		byUser:     make(map[string]*models.Professor),
	}
}

func (s *professorRepoStub) add(p *models.Professor) {
	s.professors[p.ID] = p
	s.byUser[p.UserID] = p
}

func (s *professorRepoStub) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	if p, ok := s.professors[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *professorRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Professor, error) {
	if p, ok := s.byUser[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func fixedNowBookingService(bookings *bookingRepoStub, professors *professorRepoStub, now time.Time) *BookingService {
	svc := NewBookingService(bookings, professors, &auditLoggerStub{}, validator.New(), nil)
	svc.now = func() time.Time { return now }
	return svc
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
}

func activeProfessor(rate float64) *models.Professor {
	return &models.Professor{ID: "prof-1", UserID: "prof-user-1", FullName: "Marie Dupont", HourlyRate: rate, Active: true}
}

func TestBookingServiceCreateDerivesPriceAndEnd(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(45))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	detail, err := svc.Create(context.Background(), studentClaims(), dto.CreateBookingRequest{
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-10",
		StartTime:       "14:00",
		DurationMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, 67.5, detail.TotalPrice)
	assert.Equal(t, time.Date(2026, 9, 10, 15, 30, 0, 0, time.UTC), detail.EndAt)
	assert.Equal(t, models.BookingStatusPending, detail.Status)
	assert.Equal(t, models.PaymentStatusPending, detail.PaymentStatus)
	assert.Equal(t, "online", detail.BookingType)
}

func TestBookingServiceCreateMidnightRollover(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	detail, err := svc.Create(context.Background(), studentClaims(), dto.CreateBookingRequest{
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-10",
		StartTime:       "23:30",
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 11, 0, 30, 0, 0, time.UTC), detail.EndAt)
}

func TestBookingServiceCreateRejectsToday(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), studentClaims(), dto.CreateBookingRequest{
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-10",
		StartTime:       "14:00",
		DurationMinutes: 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateDurationBounds(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	base := dto.CreateBookingRequest{
		ProfessorID: "prof-1",
		SubjectID:   "subject-1",
		LevelID:     "level-1",
		Date:        "2026-09-10",
		StartTime:   "10:00",
	}

	for _, duration := range []int{29, 241} {
		req := base
		req.DurationMinutes = duration
		_, err := svc.Create(context.Background(), studentClaims(), req)
		require.Error(t, err, "duration %d", duration)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}

	for _, duration := range []int{30, 240} {
		req := base
		req.DurationMinutes = duration
		_, err := svc.Create(context.Background(), studentClaims(), req)
		require.NoError(t, err, "duration %d", duration)
	}
}

func TestBookingServiceCreateSlotConflict(t *testing.T) {
	bookings := newBookingRepoStub()
	bookings.overlap = true
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), studentClaims(), dto.CreateBookingRequest{
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-10",
		StartTime:       "14:00",
		DurationMinutes: 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateForbiddenForProfessor(t *testing.T) {
	svc := fixedNowBookingService(newBookingRepoStub(), newProfessorRepoStub(), time.Now().UTC())

	_, err := svc.Create(context.Background(), &models.JWTClaims{UserID: "prof-user-1", Role: models.RoleProfessor}, dto.CreateBookingRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceUpdateResetsToPendingAndReprices(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(50))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID:              "booking-1",
		StudentID:       "student-1",
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		StartAt:         time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		TotalPrice:      50,
		Status:          models.BookingStatusConfirmed,
		PaymentStatus:   models.PaymentStatusPending,
		BookingType:     "online",
	}}

	detail, err := svc.Update(context.Background(), studentClaims(), "booking-1", dto.UpdateBookingRequest{
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-12",
		StartTime:       "16:00",
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, detail.Status)
	assert.Equal(t, 100.0, detail.TotalPrice)
	assert.Equal(t, time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC), detail.EndAt)
}

func TestBookingServiceUpdateForbiddenForOtherStudent(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(50))
	svc := fixedNowBookingService(bookings, professors, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-2", ProfessorID: "prof-1",
		Status: models.BookingStatusPending,
	}}

	_, err := svc.Update(context.Background(), studentClaims(), "booking-1", dto.UpdateBookingRequest{
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		Date:            "2026-09-12",
		StartTime:       "16:00",
		DurationMinutes: 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCancelCompletedUnchanged(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	svc := fixedNowBookingService(bookings, professors, time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", Status: models.BookingStatusCompleted,
	}}

	err := svc.Cancel(context.Background(), studentClaims(), "booking-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.BookingStatusCompleted, bookings.bookings["booking-1"].Status)
	_, touched := bookings.statuses["booking-1"]
	assert.False(t, touched)
}

func TestBookingServiceCancelPending(t *testing.T) {
	bookings := newBookingRepoStub()
	svc := fixedNowBookingService(bookings, newProfessorRepoStub(), time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", Status: models.BookingStatusPending,
	}}

	require.NoError(t, svc.Cancel(context.Background(), studentClaims(), "booking-1"))
	assert.Equal(t, models.BookingStatusCancelled, bookings.statuses["booking-1"])
}

func TestBookingServiceConfirmByOwningProfessor(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", ProfessorID: "prof-1", Status: models.BookingStatusPending,
	}}

	claims := &models.JWTClaims{UserID: "prof-user-1", Role: models.RoleProfessor}
	require.NoError(t, svc.Confirm(context.Background(), claims, "booking-1"))
	assert.Equal(t, models.BookingStatusConfirmed, bookings.statuses["booking-1"])
}

func TestBookingServiceConfirmRejectsForeignProfessor(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	professors.add(&models.Professor{ID: "prof-2", UserID: "prof-user-2", Active: true})
	svc := fixedNowBookingService(bookings, professors, time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", ProfessorID: "prof-1", Status: models.BookingStatusPending,
	}}

	claims := &models.JWTClaims{UserID: "prof-user-2", Role: models.RoleProfessor}
	err := svc.Confirm(context.Background(), claims, "booking-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCompleteRequiresConfirmed(t *testing.T) {
	bookings := newBookingRepoStub()
	professors := newProfessorRepoStub()
	professors.add(activeProfessor(40))
	svc := fixedNowBookingService(bookings, professors, time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", ProfessorID: "prof-1", Status: models.BookingStatusPending,
	}}

	claims := &models.JWTClaims{UserID: "prof-user-1", Role: models.RoleProfessor}
	err := svc.Complete(context.Background(), claims, "booking-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceListScopesToStudent(t *testing.T) {
	bookings := newBookingRepoStub()
	svc := fixedNowBookingService(bookings, newProfessorRepoStub(), time.Now().UTC())

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{ID: "booking-1", StudentID: "student-1"}}
	bookings.bookings["booking-2"] = &models.BookingDetail{Booking: models.Booking{ID: "booking-2", StudentID: "student-2"}}

	items, pagination, err := svc.List(context.Background(), studentClaims(), models.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "booking-1", items[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestBookingServiceCancelDropsDashboardCache(t *testing.T) {
	bookings := newBookingRepoStub()
	svc := fixedNowBookingService(bookings, newProfessorRepoStub(), time.Now().UTC())
	dashboard := &invalidatorStub{}
	svc.BindDashboardCache(dashboard)

	bookings.bookings["booking-1"] = &models.BookingDetail{Booking: models.Booking{
		ID: "booking-1", StudentID: "student-1", Status: models.BookingStatusPending,
	}}

	require.NoError(t, svc.Cancel(context.Background(), studentClaims(), "booking-1"))
	assert.Equal(t, 1, dashboard.calls)
}
