package models

import "time"

// ExportFormat identifies the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus tracks a queued export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportJobParams are the filters an admin ledger export honours.
type ExportJobParams struct {
	Format        ExportFormat   `json:"format"`
	Status        *BookingStatus `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	From          *time.Time     `json:"from,omitempty"`
	To            *time.Time     `json:"to,omitempty"`
}

// ExportJob is the lifecycle record for one ledger export request.
type ExportJob struct {
	ID           string          `json:"id"`
	RequestedBy  string          `json:"requested_by"`
	Params       ExportJobParams `json:"params"`
	Status       ExportStatus    `json:"status"`
	Error        string          `json:"error,omitempty"`
	DownloadURL  string          `json:"download_url,omitempty"`
	RelativePath string          `json:"-"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}
