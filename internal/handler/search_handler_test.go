package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
)

type handlerSearchRepo struct {
	professors []models.Professor
	lastFilter models.ProfessorFilter
}

func (r *handlerSearchRepo) Search(_ context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	r.lastFilter = filter
	return r.professors, len(r.professors), nil
}

func (r *handlerSearchRepo) FindByID(_ context.Context, id string) (*models.Professor, error) {
	for i := range r.professors {
		if r.professors[i].ID == id {
			return &r.professors[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type handlerCacheStub struct{}

func (handlerCacheStub) Get(context.Context, string, interface{}) error {
	return appErrors.ErrCacheMiss
}
func (handlerCacheStub) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (handlerCacheStub) DeleteByPattern(context.Context, string) error                 { return nil }

type handlerMetricsStub struct{}

func (handlerMetricsStub) RecordCacheOperation(bool, time.Duration) {}
func (handlerMetricsStub) ObserveCacheWrite(time.Duration)         {}

func newSearchHandlerForTest(repo *handlerSearchRepo) *SearchHandler {
	svc := service.NewSearchService(repo, handlerCacheStub{}, handlerMetricsStub{}, nil, service.SearchConfig{})
	return NewSearchHandler(svc, nil)
}

func TestSearchHandlerParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &handlerSearchRepo{professors: []models.Professor{{ID: "prof-1", FullName: "Dr. Lenoir", Active: true}}}
	handler := newSearchHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors?subject_id=sub-1&min_rating=4&sort_by=price&sort_order=asc&page=2&limit=6", nil)

	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-1", repo.lastFilter.SubjectID)
	require.NotNil(t, repo.lastFilter.MinRating)
	assert.InDelta(t, 4.0, *repo.lastFilter.MinRating, 0.001)
	assert.Equal(t, models.ProfessorSortPrice, repo.lastFilter.SortBy)
	assert.Equal(t, "asc", repo.lastFilter.SortOrder)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 6, repo.lastFilter.PageSize)
}

func TestSearchHandlerFreeTextParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &handlerSearchRepo{}
	handler := newSearchHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors?search=alice", nil)

	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", repo.lastFilter.Search)
}

func TestSearchHandlerFreeTextAlias(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &handlerSearchRepo{}
	handler := newSearchHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors?q=bob", nil)

	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", repo.lastFilter.Search)
}

func TestSearchHandlerRejectsBadRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSearchHandlerForTest(&handlerSearchRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors?min_rating=7", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandlerReportsCacheMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &handlerSearchRepo{professors: []models.Professor{{ID: "prof-1", Active: true}}}
	handler := newSearchHandlerForTest(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors", nil)

	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data       []models.Professor `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestSearchHandlerGetProfessorNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSearchHandlerForTest(&handlerSearchRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/professors/prof-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "prof-9"}}

	handler.GetProfessor(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
