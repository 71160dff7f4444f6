package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	rows := sqlmock.NewRows([]string{"subject_id"}).
		AddRow("subject-1").
		AddRow("subject-2")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject_id FROM student_subjects WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnRows(rows)

	ids, err := repo.List(context.Background(), PreferenceSubjects, "student-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"subject-1", "subject-2"}, ids)
}

func TestPreferenceRepositoryListUnknownTable(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	_, err := repo.List(context.Background(), "bookings", "student-1")
	assert.Error(t, err)
}

func TestPreferenceRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_levels WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_levels (student_id, level_id) VALUES ($1, $2), ($1, $3)")).
		WithArgs("student-1", "level-1", "level-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), PreferenceLevels, "student-1", []string{"level-1", "level-2"})
	require.NoError(t, err)
}

func TestPreferenceRepositoryReplaceEmptyClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_cities WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), PreferenceCities, "student-1", nil)
	require.NoError(t, err)
}
