package models

import "time"

// ExportFormat selects the rendered artifact type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks a queued export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportJob describes one roster export request and its outcome.
type ExportJob struct {
	ID           string       `json:"id"`
	NroDocumento string       `json:"nro_documento"`
	Format       ExportFormat `json:"format"`
	StatusFilter int          `json:"status_filter"`
	Search       string       `json:"search"`
	Status       ExportStatus `json:"status"`
	FilePath     string       `json:"file_path,omitempty"`
	DownloadURL  string       `json:"download_url,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}
