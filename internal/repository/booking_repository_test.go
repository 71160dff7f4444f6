package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/models"
)

func bookingDetailRows(id string, start, end time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "student_id", "professor_id", "subject_id", "level_id", "start_at", "end_at",
		"duration_minutes", "total_price", "status", "payment_status", "notes", "booking_type",
		"created_at", "updated_at", "student_name", "professor_name", "subject_name", "level_name",
	}).AddRow(id, "student-1", "prof-1", "subject-1", "level-1", start, end,
		60, 45.0, "pending", "pending", "", "online", now, now,
		"Alice Martin", "Marie Dupont", "Mathematics", "Secondary")
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{
		StudentID:       "student-1",
		ProfessorID:     "prof-1",
		SubjectID:       "subject-1",
		LevelID:         "level-1",
		StartAt:         time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		TotalPrice:      45,
		Status:          models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())
}

func TestBookingRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	detail, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, detail)
}

func TestBookingRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("b.student_id = $1")).
		WithArgs("student-1").
		WillReturnRows(bookingDetailRows("booking-1", start, start.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings b")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{StudentID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Mathematics", bookings[0].SubjectName)
}

func TestBookingRepositoryHasOverlap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("start_at < $3 AND end_at > $2")).
		WithArgs("prof-1", start, end, "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	overlap, err := repo.HasOverlap(context.Background(), "prof-1", start, end, "")
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestBookingRepositoryHasOverlapExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("($4 = '' OR id <> $4)")).
		WithArgs("prof-1", start, end, "booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	overlap, err := repo.HasOverlap(context.Background(), "prof-1", start, end, "booking-1")
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $2")).
		WithArgs("booking-1", models.BookingStatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "booking-1", models.BookingStatusConfirmed))
}
