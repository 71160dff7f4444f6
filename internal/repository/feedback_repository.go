package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/marketplace-api/internal/models"
)

const feedbackColumns = `id, booking_id, student_id, rating, comment, would_recommend, created_at, updated_at`

// FeedbackRepository manages post-session feedback rows.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a new feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	const query = `INSERT INTO feedbacks (id, booking_id, student_id, rating, comment, would_recommend, created_at, updated_at)
        VALUES (:id, :booking_id, :student_id, :rating, :comment, :would_recommend, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// Update rewrites the author-editable fields of a feedback row.
func (r *FeedbackRepository) Update(ctx context.Context, feedback *models.Feedback) error {
	feedback.UpdatedAt = time.Now().UTC()
	const query = `UPDATE feedbacks SET rating = :rating, comment = :comment,
        would_recommend = :would_recommend, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	return nil
}

// FindByID loads feedback by identifier.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	query := fmt.Sprintf("SELECT %s FROM feedbacks WHERE id = $1 LIMIT 1", feedbackColumns)
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	return &feedback, nil
}

// FindByBooking returns the feedback attached to a booking, if any.
func (r *FeedbackRepository) FindByBooking(ctx context.Context, bookingID string) (*models.Feedback, error) {
	query := fmt.Sprintf("SELECT %s FROM feedbacks WHERE booking_id = $1 LIMIT 1", feedbackColumns)
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find feedback by booking: %w", err)
	}
	return &feedback, nil
}
