package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/marketplace-api/internal/models"
)

// TaxonomyRepository serves the read-mostly subject, level and city lookups.
type TaxonomyRepository struct {
	db *sqlx.DB
}

// NewTaxonomyRepository constructs a TaxonomyRepository.
func NewTaxonomyRepository(db *sqlx.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// ListSubjects returns all subjects ordered by name.
func (r *TaxonomyRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name FROM subjects ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListLevels returns all levels ordered by name.
func (r *TaxonomyRepository) ListLevels(ctx context.Context) ([]models.Level, error) {
	const query = `SELECT id, name FROM levels ORDER BY name ASC`
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// ListCities returns all cities ordered by name.
func (r *TaxonomyRepository) ListCities(ctx context.Context) ([]models.City, error) {
	const query = `SELECT id, name FROM cities ORDER BY name ASC`
	var cities []models.City
	if err := r.db.SelectContext(ctx, &cities, query); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// CountExisting reports how many of the given IDs exist in a taxonomy table.
// Callers compare against len(ids) to detect unknown references.
func (r *TaxonomyRepository) CountExisting(ctx context.Context, table string, ids []string) (int, error) {
	switch table {
	case "subjects", "levels", "cities":
	default:
		return 0, fmt.Errorf("unknown taxonomy table %q", table)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id IN (?)", table), ids)
	if err != nil {
		return 0, fmt.Errorf("build taxonomy count: %w", err)
	}
	query = r.db.Rebind(query)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}
