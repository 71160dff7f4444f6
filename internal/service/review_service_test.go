package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type reviewRepoStub struct {
	reviews map[string]*models.Review
}

func newReviewRepoStub() *reviewRepoStub {
	return &reviewRepoStub{reviews: make(map[string]*models.Review)}
}

func (s *reviewRepoStub) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = fmt.Sprintf("review-%d", len(s.reviews)+1)
	}
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *reviewRepoStub) Update(ctx context.Context, review *models.Review) error {
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *reviewRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.reviews, id)
	return nil
}

func (s *reviewRepoStub) FindByID(ctx context.Context, id string) (*models.Review, error) {
	if review, ok := s.reviews[id]; ok {
		clone := *review
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reviewRepoStub) FindByProfessorAndStudent(ctx context.Context, professorID, studentID string) (*models.Review, error) {
	for _, review := range s.reviews {
		if review.ProfessorID == professorID && review.StudentID == studentID {
			clone := *review
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *reviewRepoStub) ListByProfessor(ctx context.Context, professorID string, page, pageSize int) ([]models.Review, int, error) {
	out := []models.Review{}
	for _, review := range s.reviews {
		if review.ProfessorID == professorID && review.Status == models.ModerationApproved {
			out = append(out, *review)
		}
	}
	return out, len(out), nil
}

func (s *reviewRepoStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	out := []models.Review{}
	for _, review := range s.reviews {
		if filter.Status != nil && review.Status != *filter.Status {
			continue
		}
		out = append(out, *review)
	}
	return out, len(out), nil
}

func (s *reviewRepoStub) SetModeration(ctx context.Context, id string, status models.ModerationStatus, verified, featured *bool) error {
	review, ok := s.reviews[id]
	if !ok {
		return sql.ErrNoRows
	}
	review.Status = status
	if verified != nil {
		review.Verified = *verified
	}
	if featured != nil {
		review.Featured = *featured
	}
	return nil
}

type ratingProfessorStub struct {
	professors map[string]*models.Professor
	refreshed  []string
}

func newRatingProfessorStub() *ratingProfessorStub {
	return &ratingProfessorStub{professors: map[string]*models.Professor{
		"prof-1": {ID: "prof-1", UserID: "prof-user-1", Active: true},
	}}
}

func (s *ratingProfessorStub) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	if p, ok := s.professors[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *ratingProfessorStub) RefreshRating(ctx context.Context, professorID string) error {
	s.refreshed = append(s.refreshed, professorID)
	return nil
}

func newReviewServiceForTest(reviews *reviewRepoStub, professors *ratingProfessorStub, moderation bool) *ReviewService {
	return NewReviewService(reviews, professors, &auditLoggerStub{}, validator.New(), nil, moderation)
}

func TestReviewServiceCreateFirstReview(t *testing.T) {
	reviews := newReviewRepoStub()
	professors := newRatingProfessorStub()
	svc := newReviewServiceForTest(reviews, professors, false)

	review, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 5, Title: "Excellent", Comment: "Very clear explanations", WouldRecommend: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, review.Status)
	assert.Equal(t, []string{"prof-1"}, professors.refreshed)
}

func TestReviewServiceCreateDuplicateConflictCarriesExistingID(t *testing.T) {
	reviews := newReviewRepoStub()
	professors := newRatingProfessorStub()
	svc := newReviewServiceForTest(reviews, professors, false)

	first, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 5, Title: "Excellent",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 1, Title: "Changed my mind",
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Contains(t, typed.Message, first.ID)
	assert.Len(t, reviews.reviews, 1)
}

func TestReviewServiceCreatePendingWhenModerationEnabled(t *testing.T) {
	reviews := newReviewRepoStub()
	professors := newRatingProfessorStub()
	svc := newReviewServiceForTest(reviews, professors, true)

	review, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 4, Title: "Good",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModerationPending, review.Status)
	assert.Empty(t, professors.refreshed)
}

func TestReviewServiceCreateUnknownProfessor(t *testing.T) {
	svc := newReviewServiceForTest(newReviewRepoStub(), newRatingProfessorStub(), false)

	_, err := svc.Create(context.Background(), studentClaims(), "prof-missing", dto.CreateReviewRequest{
		Rating: 4, Title: "Good",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceUpdateAuthorOnly(t *testing.T) {
	reviews := newReviewRepoStub()
	professors := newRatingProfessorStub()
	svc := newReviewServiceForTest(reviews, professors, false)

	created, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 5, Title: "Excellent",
	})
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	_, err = svc.Update(context.Background(), other, created.ID, dto.UpdateReviewRequest{Rating: 1, Title: "Nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), studentClaims(), created.ID, dto.UpdateReviewRequest{Rating: 3, Title: "Revised"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
}

func TestReviewServiceModerateApproveRefreshesRating(t *testing.T) {
	reviews := newReviewRepoStub()
	professors := newRatingProfessorStub()
	svc := newReviewServiceForTest(reviews, professors, true)

	created, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 5, Title: "Excellent",
	})
	require.NoError(t, err)
	require.Empty(t, professors.refreshed)

	verified := true
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	moderated, err := svc.Moderate(context.Background(), admin, created.ID, dto.ModerateReviewRequest{
		Status: "approved", Verified: &verified,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, moderated.Status)
	assert.True(t, moderated.Verified)
	assert.Equal(t, []string{"prof-1"}, professors.refreshed)
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate(ctx context.Context) {
	s.calls++
}

func TestReviewServiceModerateDropsSearchCache(t *testing.T) {
	reviews := newReviewRepoStub()
	svc := newReviewServiceForTest(reviews, newRatingProfessorStub(), true)
	search := &invalidatorStub{}
	svc.BindSearchCache(search)

	created, err := svc.Create(context.Background(), studentClaims(), "prof-1", dto.CreateReviewRequest{
		Rating: 4, Title: "Solid",
	})
	require.NoError(t, err)
	assert.Zero(t, search.calls)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.Moderate(context.Background(), admin, created.ID, dto.ModerateReviewRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, 1, search.calls)
}
