package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/marketplace-api/internal/models"
)

const professorColumns = `p.id, p.user_id, p.full_name, p.bio, p.specializations, p.hourly_rate, p.rating, p.review_count, p.city_id, p.active, p.created_at, p.updated_at`

// ProfessorRepository manages persistence for professor profiles and the
// public search query.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs a ProfessorRepository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// Search returns active professors matching the provided filters along with
// the total match count. Sort columns outside the allow-list fall back to
// rating.
func (r *ProfessorRepository) Search(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	base := "FROM professors p"
	conditions := []string{"p.active = true"}
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM professor_subjects ps WHERE ps.professor_id = p.id AND ps.subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.LevelID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM professor_levels pl WHERE pl.professor_id = p.id AND pl.level_id = $%d)", len(args)+1))
		args = append(args, filter.LevelID)
	}
	if filter.CityID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM professor_cities pc WHERE pc.professor_id = p.id AND pc.city_id = $%d)", len(args)+1))
		args = append(args, filter.CityID)
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("p.rating >= $%d", len(args)+1))
		args = append(args, *filter.MinRating)
	}
	if filter.MaxHourlyRate != nil {
		conditions = append(conditions, fmt.Sprintf("p.hourly_rate <= $%d", len(args)+1))
		args = append(args, *filter.MaxHourlyRate)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.full_name) LIKE $%d OR LOWER(p.bio) LIKE $%d OR LOWER(p.specializations) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[models.ProfessorSortField]string{
		models.ProfessorSortRating: "p.rating",
		models.ProfessorSortPrice:  "p.hourly_rate",
		models.ProfessorSortName:   "p.full_name",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.rating"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 12
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, p.id ASC LIMIT %d OFFSET %d", professorColumns, base, column, order, size, offset)

	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search professors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}
	return professors, total, nil
}

// FindByID fetches a professor profile by ID.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	query := fmt.Sprintf("SELECT %s FROM professors p WHERE p.id = $1 LIMIT 1", professorColumns)
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find professor: %w", err)
	}
	return &professor, nil
}

// FindByUserID fetches the profile owned by the given user account.
func (r *ProfessorRepository) FindByUserID(ctx context.Context, userID string) (*models.Professor, error) {
	query := fmt.Sprintf("SELECT %s FROM professors p WHERE p.user_id = $1 LIMIT 1", professorColumns)
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find professor by user: %w", err)
	}
	return &professor, nil
}

// RefreshRating recomputes the aggregate rating and review count from
// approved reviews and stores it on the profile.
func (r *ProfessorRepository) RefreshRating(ctx context.Context, professorID string) error {
	const query = `UPDATE professors SET
        rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE professor_id = $1 AND status = 'approved'), 0),
        review_count = (SELECT COUNT(*) FROM reviews WHERE professor_id = $1 AND status = 'approved'),
        updated_at = NOW()
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, professorID); err != nil {
		return fmt.Errorf("refresh professor rating: %w", err)
	}
	return nil
}
