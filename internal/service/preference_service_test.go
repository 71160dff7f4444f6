package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/repository"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type preferenceRepoStub struct {
	sets map[string]map[string][]string
}

func newPreferenceRepoStub() *preferenceRepoStub {
	return &preferenceRepoStub{sets: make(map[string]map[string][]string)}
}

func (s *preferenceRepoStub) List(ctx context.Context, table, studentID string) ([]string, error) {
	if byStudent, ok := s.sets[table]; ok {
		return byStudent[studentID], nil
	}
	return []string{}, nil
}

func (s *preferenceRepoStub) Replace(ctx context.Context, table, studentID string, ids []string) error {
	if s.sets[table] == nil {
		s.sets[table] = make(map[string][]string)
	}
	s.sets[table][studentID] = ids
	return nil
}

type taxonomyRepoStub struct {
	known map[string]map[string]bool
}

func newTaxonomyRepoStub() *taxonomyRepoStub {
	return &taxonomyRepoStub{known: map[string]map[string]bool{
		"subjects": {"subject-1": true, "subject-2": true},
		"levels":   {"level-1": true},
		"cities":   {"city-1": true},
	}}
}

func (s *taxonomyRepoStub) ListSubjects(ctx context.Context) ([]models.Subject, error) { return nil, nil }
func (s *taxonomyRepoStub) ListLevels(ctx context.Context) ([]models.Level, error)     { return nil, nil }
func (s *taxonomyRepoStub) ListCities(ctx context.Context) ([]models.City, error)      { return nil, nil }

func (s *taxonomyRepoStub) CountExisting(ctx context.Context, table string, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		if s.known[table][id] {
			count++
		}
	}
	return count, nil
}

func TestPreferenceServiceSyncReplacesSet(t *testing.T) {
	prefs := newPreferenceRepoStub()
	svc := NewPreferenceService(prefs, newTaxonomyRepoStub(), validator.New(), nil)

	ids, err := svc.SyncSubjects(context.Background(), studentClaims(), dto.SyncPreferencesRequest{
		IDs: []string{"subject-1", "subject-2", "subject-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"subject-1", "subject-2"}, ids)
	assert.Equal(t, []string{"subject-1", "subject-2"}, prefs.sets[repository.PreferenceSubjects]["student-1"])
}

func TestPreferenceServiceSyncRejectsUnknownID(t *testing.T) {
	prefs := newPreferenceRepoStub()
	svc := NewPreferenceService(prefs, newTaxonomyRepoStub(), validator.New(), nil)

	_, err := svc.SyncLevels(context.Background(), studentClaims(), dto.SyncPreferencesRequest{
		IDs: []string{"level-1", "level-404"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, prefs.sets[repository.PreferenceLevels])
}

func TestPreferenceServiceForbiddenForProfessor(t *testing.T) {
	svc := NewPreferenceService(newPreferenceRepoStub(), newTaxonomyRepoStub(), validator.New(), nil)

	claims := &models.JWTClaims{UserID: "prof-user-1", Role: models.RoleProfessor}
	_, err := svc.Get(context.Background(), claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPreferenceServiceGetAggregatesSets(t *testing.T) {
	prefs := newPreferenceRepoStub()
	svc := NewPreferenceService(prefs, newTaxonomyRepoStub(), validator.New(), nil)

	_, err := svc.SyncCities(context.Background(), studentClaims(), dto.SyncPreferencesRequest{IDs: []string{"city-1"}})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), studentClaims())
	require.NoError(t, err)
	assert.Equal(t, []string{"city-1"}, got.CityIDs)
}
