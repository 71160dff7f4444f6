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

const reviewColumns = `id, professor_id, student_id, rating, title, comment, would_recommend, status, verified, featured, created_at, updated_at`

// ReviewRepository manages review rows and their moderation state.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	const query = `INSERT INTO reviews (id, professor_id, student_id, rating, title, comment, would_recommend, status, verified, featured, created_at, updated_at)
        VALUES (:id, :professor_id, :student_id, :rating, :title, :comment, :would_recommend, :status, :verified, :featured, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// Update rewrites the author-editable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviews SET rating = :rating, title = :title, comment = :comment,
        would_recommend = :would_recommend, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// Delete removes a review row.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reviews WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// FindByID loads a review by identifier.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1 LIMIT 1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// FindByProfessorAndStudent returns the single review a student left for a
// professor, if any.
func (r *ReviewRepository) FindByProfessorAndStudent(ctx context.Context, professorID, studentID string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE professor_id = $1 AND student_id = $2 LIMIT 1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, professorID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review by professor and student: %w", err)
	}
	return &review, nil
}

// ListByProfessor returns approved reviews for a professor, featured first,
// newest first within each group.
func (r *ReviewRepository) ListByProfessor(ctx context.Context, professorID string, page, pageSize int) ([]models.Review, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE professor_id = $1 AND status = 'approved'
        ORDER BY featured DESC, created_at DESC LIMIT %d OFFSET %d`, reviewColumns, pageSize, offset)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, professorID); err != nil {
		return nil, 0, fmt.Errorf("list reviews by professor: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM reviews WHERE professor_id = $1 AND status = 'approved'`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, professorID); err != nil {
		return nil, 0, fmt.Errorf("count reviews by professor: %w", err)
	}
	return reviews, total, nil
}

// List returns reviews matching the moderation filter with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", len(args)+1))
		args = append(args, *filter.Featured)
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

	query := fmt.Sprintf("SELECT %s FROM reviews WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		reviewColumns, where, size, offset)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reviews WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// SetModeration applies an admin moderation decision. Verified and featured
// are only touched when the caller supplies them.
func (r *ReviewRepository) SetModeration(ctx context.Context, id string, status models.ModerationStatus, verified, featured *bool) error {
	sets := []string{"status = $2", "updated_at = $3"}
	args := []interface{}{id, status, time.Now().UTC()}

	if verified != nil {
		sets = append(sets, fmt.Sprintf("verified = $%d", len(args)+1))
		args = append(args, *verified)
	}
	if featured != nil {
		sets = append(sets, fmt.Sprintf("featured = $%d", len(args)+1))
		args = append(args, *featured)
	}

	query := fmt.Sprintf("UPDATE reviews SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set review moderation: %w", err)
	}
	return nil
}
