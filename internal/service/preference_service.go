package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/repository"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type preferenceRepository interface {
	List(ctx context.Context, table, studentID string) ([]string, error)
	Replace(ctx context.Context, table, studentID string, ids []string) error
}

type taxonomyRepository interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListLevels(ctx context.Context) ([]models.Level, error)
	ListCities(ctx context.Context) ([]models.City, error)
	CountExisting(ctx context.Context, table string, ids []string) (int, error)
}

// PreferenceService owns the student taxonomy preference sets. Each sync
// replaces one whole set, so removals need no separate endpoint.
type PreferenceService struct {
	preferences preferenceRepository
	taxonomies  taxonomyRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(preferences preferenceRepository, taxonomies taxonomyRepository, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PreferenceService{preferences: preferences, taxonomies: taxonomies, validator: validate, logger: logger}
}

// Get returns all three preference sets of the caller.
func (s *PreferenceService) Get(ctx context.Context, claims *models.JWTClaims) (*models.StudentPreferences, error) {
	if claims == nil || !claims.Role.IsBooker() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and parents keep preferences")
	}

	prefs := &models.StudentPreferences{}
	var err error
	if prefs.SubjectIDs, err = s.preferences.List(ctx, repository.PreferenceSubjects, claims.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject preferences")
	}
	if prefs.LevelIDs, err = s.preferences.List(ctx, repository.PreferenceLevels, claims.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list level preferences")
	}
	if prefs.CityIDs, err = s.preferences.List(ctx, repository.PreferenceCities, claims.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list city preferences")
	}
	return prefs, nil
}

// SyncSubjects replaces the caller's subject preference set.
func (s *PreferenceService) SyncSubjects(ctx context.Context, claims *models.JWTClaims, req dto.SyncPreferencesRequest) ([]string, error) {
	return s.sync(ctx, claims, repository.PreferenceSubjects, "subjects", req)
}

// SyncLevels replaces the caller's level preference set.
func (s *PreferenceService) SyncLevels(ctx context.Context, claims *models.JWTClaims, req dto.SyncPreferencesRequest) ([]string, error) {
	return s.sync(ctx, claims, repository.PreferenceLevels, "levels", req)
}

// SyncCities replaces the caller's city preference set.
func (s *PreferenceService) SyncCities(ctx context.Context, claims *models.JWTClaims, req dto.SyncPreferencesRequest) ([]string, error) {
	return s.sync(ctx, claims, repository.PreferenceCities, "cities", req)
}

func (s *PreferenceService) sync(ctx context.Context, claims *models.JWTClaims, table, taxonomy string, req dto.SyncPreferencesRequest) ([]string, error) {
	if claims == nil || !claims.Role.IsBooker() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and parents keep preferences")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferences payload")
	}

	ids := dedupe(req.IDs)

	if len(ids) > 0 {
		count, err := s.taxonomies.CountExisting(ctx, taxonomy, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify preferences")
		}
		if count != len(ids) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("unknown %s in preference list", taxonomy))
		}
	}

	if err := s.preferences.Replace(ctx, table, claims.UserID, ids); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync preferences")
	}
	return ids, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
