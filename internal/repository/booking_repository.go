package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/marketplace-api/internal/models"
)

const bookingDetailColumns = `b.id, b.student_id, b.professor_id, b.subject_id, b.level_id, b.start_at, b.end_at,
        b.duration_minutes, b.total_price, b.status, b.payment_status, b.notes, b.booking_type, b.created_at, b.updated_at,
        u.full_name AS student_name, p.full_name AS professor_name, s.name AS subject_name, l.name AS level_name`

const bookingDetailJoins = `FROM bookings b
        JOIN users u ON u.id = b.student_id
        JOIN professors p ON p.id = b.professor_id
        JOIN subjects s ON s.id = b.subject_id
        JOIN levels l ON l.id = b.level_id`

// BookingRepository manages booking rows and the professor availability check.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new booking row.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (id, student_id, professor_id, subject_id, level_id, start_at, end_at,
        duration_minutes, total_price, status, payment_status, notes, booking_type, created_at, updated_at)
        VALUES (:id, :student_id, :professor_id, :subject_id, :level_id, :start_at, :end_at,
        :duration_minutes, :total_price, :status, :payment_status, :notes, :booking_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Update rewrites the schedule-related fields of an existing booking.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET subject_id = :subject_id, level_id = :level_id, start_at = :start_at,
        end_at = :end_at, duration_minutes = :duration_minutes, total_price = :total_price, status = :status,
        notes = :notes, booking_type = :booking_type, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// FindByID returns a booking with the joined party and taxonomy names.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE b.id = $1 LIMIT 1", bookingDetailColumns, bookingDetailJoins)
	var detail models.BookingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &detail, nil
}

// List returns bookings matching the filter, most recent start first, with
// the total match count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("b.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("b.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("b.payment_status = $%d", len(args)+1))
		args = append(args, *filter.PaymentStatus)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY b.start_at DESC LIMIT %d OFFSET %d",
		bookingDetailColumns, bookingDetailJoins, where, size, offset)

	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM bookings b WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus moves a booking to a new lifecycle state.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// UpdatePaymentStatus moves a booking's payment to a new state.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE bookings SET payment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking payment status: %w", err)
	}
	return nil
}

// HasOverlap reports whether the professor already has a non-cancelled booking
// intersecting the half-open interval [startAt, endAt). excludeID skips the
// booking being edited.
func (r *BookingRepository) HasOverlap(ctx context.Context, professorID string, startAt, endAt time.Time, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM bookings
        WHERE professor_id = $1 AND status <> 'cancelled'
        AND start_at < $3 AND end_at > $2
        AND ($4 = '' OR id <> $4))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, professorID, startAt, endAt, excludeID); err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}
	return exists, nil
}

// ListForExport streams the full ledger rows matching the export parameters,
// oldest first, unpaginated.
func (r *BookingRepository) ListForExport(ctx context.Context, params models.ExportJobParams) ([]models.BookingDetail, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, *params.Status)
	}
	if params.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("b.payment_status = $%d", len(args)+1))
		args = append(args, *params.PaymentStatus)
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_at >= $%d", len(args)+1))
		args = append(args, *params.From)
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_at < $%d", len(args)+1))
		args = append(args, *params.To)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY b.start_at ASC",
		bookingDetailColumns, bookingDetailJoins, strings.Join(conditions, " AND "))

	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings for export: %w", err)
	}
	return bookings, nil
}
