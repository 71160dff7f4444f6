package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Preference join tables keyed by the taxonomy they associate.
const (
	PreferenceSubjects = "student_subjects"
	PreferenceLevels   = "student_levels"
	PreferenceCities   = "student_cities"
)

var preferenceColumns = map[string]string{
	PreferenceSubjects: "subject_id",
	PreferenceLevels:   "level_id",
	PreferenceCities:   "city_id",
}

// PreferenceRepository manages the student taxonomy association sets.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs a PreferenceRepository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// List returns the associated taxonomy IDs of one preference table for a
// student.
func (r *PreferenceRepository) List(ctx context.Context, table, studentID string) ([]string, error) {
	column, ok := preferenceColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown preference table %q", table)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE student_id = $1 ORDER BY %s", column, table, column)
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return ids, nil
}

// Replace swaps the full association set of one preference table inside a
// transaction. An empty slice clears the set.
func (r *PreferenceRepository) Replace(ctx context.Context, table, studentID string, ids []string) error {
	column, ok := preferenceColumns[table]
	if !ok {
		return fmt.Errorf("unknown preference table %q", table)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	defer tx.Rollback()

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE student_id = $1", table)
	if _, err := tx.ExecContext(ctx, deleteQuery, studentID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if len(ids) > 0 {
		placeholders := make([]string, 0, len(ids))
		args := make([]interface{}, 0, len(ids)+1)
		args = append(args, studentID)
		for _, id := range ids {
			placeholders = append(placeholders, fmt.Sprintf("($1, $%d)", len(args)+1))
			args = append(args, id)
		}
		insertQuery := fmt.Sprintf("INSERT INTO %s (student_id, %s) VALUES %s",
			table, column, strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", table, err)
	}
	return nil
}
