package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/models"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/export"
	"github.com/tutorlink/marketplace-api/pkg/jobs"
)

type exportBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.BookingDetail, error)
	ListForExport(ctx context.Context, params models.ExportJobParams) ([]models.BookingDetail, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type exportQueue interface {
	Enqueue(job jobs.Job) error
}

// Column order must match the rows built in buildLedgerDataset.
var bookingLedgerHeaders = []string{
	"booking_id", "student", "professor", "subject", "level",
	"start_at", "end_at", "duration_minutes", "total_price", "status", "payment_status",
}

// ExportService runs the admin ledger exports asynchronously: a request is
// accepted, queued, rendered by a worker and served later through a signed
// download URL.
type ExportService struct {
	bookings  exportBookingRepository
	storage   exportStorage
	signer    exportSigner
	queue     exportQueue
	audit     bookingAuditRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportService constructs an ExportService. Call BindQueue before use.
func NewExportService(bookings exportBookingRepository, storage exportStorage, signer exportSigner, audit bookingAuditRepository, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{
		bookings:  bookings,
		storage:   storage,
		signer:    signer,
		audit:     audit,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		jobs:      make(map[string]*models.ExportJob),
	}
}

// BindQueue attaches the worker queue that will run Process.
func (s *ExportService) BindQueue(queue exportQueue) {
	s.queue = queue
}

// Request validates and enqueues a ledger export, returning the queued job.
func (s *ExportService) Request(ctx context.Context, claims *models.JWTClaims, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue unavailable")
	}

	params := models.ExportJobParams{Format: models.ExportFormat(req.Format)}
	if !params.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}
	if req.Status != "" {
		status := models.BookingStatus(req.Status)
		params.Status = &status
	}
	if req.PaymentStatus != "" {
		status := models.PaymentStatus(req.PaymentStatus)
		params.PaymentStatus = &status
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from date")
		}
		params.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid to date")
		}
		// inclusive end date
		end := to.Add(24 * time.Hour)
		params.To = &end
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		RequestedBy: "",
		Params:      params,
		Status:      models.ExportStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}
	if claims != nil {
		job.RequestedBy = claims.UserID
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "booking_ledger_export", Payload: job.ID}); err != nil {
		s.setFailure(job.ID, "queue rejected the job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}

	if s.audit != nil && claims != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionExportRequest,
			Resource:   "export",
			ResourceID: &job.ID,
			NewValues:  []byte(fmt.Sprintf(`{"format":%q}`, params.Format)),
		}); err != nil {
			s.logger.Warn("failed to record export audit log", zap.Error(err))
		}
	}

	return snapshotJob(job), nil
}

// Get returns the current state of an export job.
func (s *ExportService) Get(ctx context.Context, jobID string) (*models.ExportJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return snapshotJob(job), nil
}

// Process is the queue handler: it renders the ledger and stores the file.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected export payload %T", job.Payload)
	}

	s.mu.Lock()
	stored, found := s.jobs[jobID]
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("export job %s not tracked", jobID)
	}
	stored.Status = models.ExportStatusRunning
	params := stored.Params
	s.mu.Unlock()

	bookings, err := s.bookings.ListForExport(ctx, params)
	if err != nil {
		s.setFailure(jobID, "failed to load bookings")
		return err
	}

	dataset := buildLedgerDataset(bookings)

	var payload []byte
	var ext string
	switch params.Format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Booking Ledger")
		ext = "pdf"
	default:
		payload, err = s.csv.Render(dataset)
		ext = "csv"
	}
	if err != nil {
		s.setFailure(jobID, "failed to render export")
		return err
	}

	relPath := fmt.Sprintf("%s/bookings-%s.%s", time.Now().UTC().Format("2006-01-02"), jobID, ext)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		s.setFailure(jobID, "failed to store export")
		return err
	}

	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		s.setFailure(jobID, "failed to sign download url")
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	stored.Status = models.ExportStatusCompleted
	stored.RelativePath = relPath
	stored.DownloadURL = fmt.Sprintf("/export/%s", token)
	stored.ExpiresAt = &expiresAt
	stored.CompletedAt = &now
	s.mu.Unlock()

	s.logger.Info("export completed",
		zap.String("job_id", jobID),
		zap.String("format", string(params.Format)),
		zap.Int("rows", len(bookings)))
	return nil
}

// ResolveDownload validates a signed token and returns the stored file path.
func (s *ExportService) ResolveDownload(token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "download unavailable")
	}
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}

	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok || job.Status != models.ExportStatusCompleted || job.RelativePath != relPath {
		return "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return relPath, nil
}

// Receipt renders a one-page PDF receipt for a booking.
func (s *ExportService) Receipt(ctx context.Context, claims *models.JWTClaims, bookingID string) ([]byte, string, error) {
	detail, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if claims == nil || (detail.StudentID != claims.UserID && claims.Role != models.RoleAdmin) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}

	lines := []export.ReceiptLine{
		{Label: "Student", Value: detail.StudentName},
		{Label: "Professor", Value: detail.ProfessorName},
		{Label: "Subject", Value: detail.SubjectName},
		{Label: "Level", Value: detail.LevelName},
		{Label: "Session", Value: fmt.Sprintf("%s - %s",
			detail.StartAt.Format("2006-01-02 15:04"), detail.EndAt.Format("15:04"))},
		{Label: "Duration", Value: fmt.Sprintf("%d minutes", detail.DurationMinutes)},
		{Label: "Total", Value: formatPrice(detail.TotalPrice)},
		{Label: "Payment", Value: string(detail.PaymentStatus)},
	}

	payload, err := s.pdf.RenderReceipt("Booking Receipt", detail.ID, lines)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := fmt.Sprintf("receipt-%s.pdf", detail.ID)
	return payload, filename, nil
}

// Cleanup removes expired export files and forgets completed jobs whose
// download window elapsed.
func (s *ExportService) Cleanup(ttl time.Duration) {
	if s.storage == nil {
		return
	}
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) == 0 {
		return
	}

	s.mu.Lock()
	for id, job := range s.jobs {
		if job.ExpiresAt != nil && time.Now().After(*job.ExpiresAt) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	s.logger.Info("export files cleaned up", zap.Int("deleted", len(deleted)))
}

func (s *ExportService) setFailure(jobID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = models.ExportStatusFailed
		job.Error = message
	}
}

func snapshotJob(job *models.ExportJob) *models.ExportJob {
	clone := *job
	return &clone
}

func buildLedgerDataset(bookings []models.BookingDetail) export.Dataset {
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, []string{
			b.ID,
			b.StudentName,
			b.ProfessorName,
			b.SubjectName,
			b.LevelName,
			b.StartAt.Format(time.RFC3339),
			b.EndAt.Format(time.RFC3339),
			strconv.Itoa(b.DurationMinutes),
			formatPrice(b.TotalPrice),
			string(b.Status),
			string(b.PaymentStatus),
		})
	}
	return export.Dataset{Headers: bookingLedgerHeaders, Rows: rows}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
