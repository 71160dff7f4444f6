package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/marketplace-api/internal/models"
)

// DashboardRepository aggregates the admin overview numbers.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountBookingsByStatus returns the booking count per lifecycle state.
func (r *DashboardRepository) CountBookingsByStatus(ctx context.Context) ([]models.BookingStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status ORDER BY status`
	var counts []models.BookingStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	return counts, nil
}

// PaidRevenue sums the total price of paid bookings.
func (r *DashboardRepository) PaidRevenue(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(total_price), 0) FROM bookings WHERE payment_status = 'paid'`
	var revenue float64
	if err := r.db.GetContext(ctx, &revenue, query); err != nil {
		return 0, fmt.Errorf("sum paid revenue: %w", err)
	}
	return revenue, nil
}

// PendingReviews counts reviews awaiting moderation.
func (r *DashboardRepository) PendingReviews(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE status = 'pending'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return count, nil
}

// TopProfessors returns the highest rated active professors with their
// non-cancelled booking volume.
func (r *DashboardRepository) TopProfessors(ctx context.Context, limit int) ([]models.TopProfessor, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT p.id AS professor_id, p.full_name, p.rating, p.review_count,
        COUNT(b.id) AS bookings
        FROM professors p
        LEFT JOIN bookings b ON b.professor_id = p.id AND b.status <> 'cancelled'
        WHERE p.active = true
        GROUP BY p.id, p.full_name, p.rating, p.review_count
        ORDER BY p.rating DESC, bookings DESC
        LIMIT %d`, limit)
	var professors []models.TopProfessor
	if err := r.db.SelectContext(ctx, &professors, query); err != nil {
		return nil, fmt.Errorf("list top professors: %w", err)
	}
	return professors, nil
}
