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

func reviewRows(id string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "professor_id", "student_id", "rating", "title", "comment",
		"would_recommend", "status", "verified", "featured", "created_at", "updated_at",
	}).AddRow(id, "prof-1", "student-1", 5, "Great tutor", "Very patient", true, "approved", false, false, now, now)
}

func TestReviewRepositoryFindByProfessorAndStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE professor_id = $1 AND student_id = $2")).
		WithArgs("prof-1", "student-1").
		WillReturnRows(reviewRows("review-1"))

	review, err := repo.FindByProfessorAndStudent(context.Background(), "prof-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "review-1", review.ID)
}

func TestReviewRepositoryFindByProfessorAndStudentNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE professor_id = $1 AND student_id = $2")).
		WithArgs("prof-1", "student-2").
		WillReturnError(sql.ErrNoRows)

	review, err := repo.FindByProfessorAndStudent(context.Background(), "prof-1", "student-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, review)
}

func TestReviewRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	review := &models.Review{
		ProfessorID:    "prof-1",
		StudentID:      "student-1",
		Rating:         4,
		Title:          "Solid",
		Comment:        "Helped a lot",
		WouldRecommend: true,
		Status:         models.ModerationPending,
	}
	require.NoError(t, repo.Create(context.Background(), review))
	assert.NotEmpty(t, review.ID)
}

func TestReviewRepositoryListByProfessorApprovedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'approved'")).
		WithArgs("prof-1").
		WillReturnRows(reviewRows("review-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reviews WHERE professor_id = $1 AND status = 'approved'")).
		WithArgs("prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reviews, total, err := repo.ListByProfessor(context.Background(), "prof-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reviews, 1)
}

func TestReviewRepositorySetModerationWithFlags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	verified := true
	featured := false

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $2, updated_at = $3, verified = $4, featured = $5 WHERE id = $1")).
		WithArgs("review-1", models.ModerationApproved, sqlmock.AnyArg(), true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetModeration(context.Background(), "review-1", models.ModerationApproved, &verified, &featured))
}

func TestReviewRepositorySetModerationStatusOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("review-1", models.ModerationRejected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetModeration(context.Background(), "review-1", models.ModerationRejected, nil, nil))
}
