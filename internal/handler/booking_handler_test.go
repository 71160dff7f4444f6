package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/marketplace-api/internal/middleware"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/service"
)

type handlerBookingRepo struct {
	bookings map[string]*models.BookingDetail
	overlap  bool
	statuses map[string]models.BookingStatus
}

func newHandlerBookingRepo() *handlerBookingRepo {
	return &handlerBookingRepo{
		bookings: map[string]*models.BookingDetail{},
		statuses: map[string]models.BookingStatus{},
	}
}

func (r *handlerBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.bookings[booking.ID] = &models.BookingDetail{Booking: *booking}
	return nil
}

func (r *handlerBookingRepo) Update(_ context.Context, booking *models.Booking) error {
	r.bookings[booking.ID] = &models.BookingDetail{Booking: *booking}
	return nil
}

func (r *handlerBookingRepo) FindByID(_ context.Context, id string) (*models.BookingDetail, error) {
	detail, ok := r.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *detail
	if status, ok := r.statuses[id]; ok {
		copied.Status = status
	}
	return &copied, nil
}

func (r *handlerBookingRepo) List(_ context.Context, _ models.BookingFilter) ([]models.BookingDetail, int, error) {
	var out []models.BookingDetail
	for _, detail := range r.bookings {
		out = append(out, *detail)
	}
	return out, len(out), nil
}

func (r *handlerBookingRepo) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	r.statuses[id] = status
	return nil
}

func (r *handlerBookingRepo) HasOverlap(_ context.Context, _ string, _, _ time.Time, _ string) (bool, error) {
	return r.overlap, nil
}

type handlerProfessorRepo struct {
	professors map[string]*models.Professor
}

func (r *handlerProfessorRepo) FindByID(_ context.Context, id string) (*models.Professor, error) {
	professor, ok := r.professors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return professor, nil
}

func (r *handlerProfessorRepo) FindByUserID(_ context.Context, userID string) (*models.Professor, error) {
	for _, professor := range r.professors {
		if professor.UserID == userID {
			return professor, nil
		}
	}
	return nil, sql.ErrNoRows
}

type handlerAuditRepo struct{}

func (r *handlerAuditRepo) CreateAuditLog(context.Context, *models.AuditLog) error { return nil }

func newBookingHandlerForTest(repo *handlerBookingRepo, professors *handlerProfessorRepo) *BookingHandler {
	svc := service.NewBookingService(repo, professors, &handlerAuditRepo{}, validator.New(), nil)
	return NewBookingHandler(svc, nil)
}

func authedContext(t *testing.T, method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestBookingHandlerCreateSuccess(t *testing.T) {
	repo := newHandlerBookingRepo()
	professors := &handlerProfessorRepo{professors: map[string]*models.Professor{
		"prof-1": {ID: "prof-1", UserID: "user-prof-1", FullName: "Dr. Lenoir", HourlyRate: 40, Active: true},
	}}
	handler := newBookingHandlerForTest(repo, professors)

	body := `{"professor_id":"prof-1","subject_id":"sub-1","level_id":"lvl-1","date":"2031-06-02","start_time":"10:00","duration_minutes":90}`
	c, rec := authedContext(t, http.MethodPost, "/bookings", body, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.BookingDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.BookingStatusPending, envelope.Data.Status)
	assert.InDelta(t, 60.0, envelope.Data.TotalPrice, 0.001)
}

func TestBookingHandlerCreateRejectsMalformedBody(t *testing.T) {
	handler := newBookingHandlerForTest(newHandlerBookingRepo(), &handlerProfessorRepo{professors: map[string]*models.Professor{}})

	c, rec := authedContext(t, http.MethodPost, "/bookings", `{"professor_id":`, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerCreateOverlapConflict(t *testing.T) {
	repo := newHandlerBookingRepo()
	repo.overlap = true
	professors := &handlerProfessorRepo{professors: map[string]*models.Professor{
		"prof-1": {ID: "prof-1", UserID: "user-prof-1", HourlyRate: 40, Active: true},
	}}
	handler := newBookingHandlerForTest(repo, professors)

	body := `{"professor_id":"prof-1","subject_id":"sub-1","level_id":"lvl-1","date":"2031-06-02","start_time":"10:00","duration_minutes":60}`
	c, rec := authedContext(t, http.MethodPost, "/bookings", body, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingHandlerListRejectsUnknownStatus(t *testing.T) {
	handler := newBookingHandlerForTest(newHandlerBookingRepo(), &handlerProfessorRepo{professors: map[string]*models.Professor{}})

	c, rec := authedContext(t, http.MethodGet, "/bookings?status=teleported", "", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerCancelForeignBookingForbidden(t *testing.T) {
	repo := newHandlerBookingRepo()
	repo.bookings["bk-1"] = &models.BookingDetail{Booking: models.Booking{
		ID:        "bk-1",
		StudentID: "student-1",
		Status:    models.BookingStatusPending,
	}}
	handler := newBookingHandlerForTest(repo, &handlerProfessorRepo{professors: map[string]*models.Professor{}})

	c, rec := authedContext(t, http.MethodDelete, "/bookings/bk-1", "", &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}

	handler.Cancel(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookingHandlerCancelOwnPending(t *testing.T) {
	repo := newHandlerBookingRepo()
	repo.bookings["bk-1"] = &models.BookingDetail{Booking: models.Booking{
		ID:        "bk-1",
		StudentID: "student-1",
		Status:    models.BookingStatusPending,
	}}
	handler := newBookingHandlerForTest(repo, &handlerProfessorRepo{professors: map[string]*models.Professor{}})

	c, rec := authedContext(t, http.MethodDelete, "/bookings/bk-1", "", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}

	handler.Cancel(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.BookingStatusCancelled, repo.statuses["bk-1"])
}
