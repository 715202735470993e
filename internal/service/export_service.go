package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/repository"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
	"github.com/muni-gth/papeletas-api/pkg/export"
	"github.com/muni-gth/papeletas-api/pkg/jobs"
	"github.com/muni-gth/papeletas-api/pkg/storage"
)

const exportJobType = "papeletas_export"

var exportHeaders = []string{"Numero", "Fecha", "Hora Salida", "Hora Retorno", "Destino", "Motivo", "Estado"}

type exportLister interface {
	Listar(ctx context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error)
}

type exportJobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	Find(ctx context.Context, id string) (*models.ExportJob, error)
}

type exportMetrics interface {
	IncExportJob(status string)
}

// ExportService produces downloadable CSV and PDF snapshots of an
// employee's full papeleta roster. Jobs run asynchronously; the caller
// polls status and downloads through a signed token.
type ExportService struct {
	remote    exportLister
	jobsRepo  exportJobStore
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	queue     *jobs.Queue
	metrics   exportMetrics
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
	fileTTL   time.Duration
}

// ExportServiceConfig bundles the export pipeline settings.
type ExportServiceConfig struct {
	PageSize        int
	FileTTL         time.Duration
	WorkerCount     int
	WorkerRetries   int
	CleanupInterval time.Duration
}

// NewExportService wires the export pipeline and its worker queue. Call
// Start before enqueueing.
func NewExportService(remote exportLister, jobsRepo exportJobStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics exportMetrics, validate *validator.Validate, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = 24 * time.Hour
	}

	s := &ExportService{
		remote:    remote,
		jobsRepo:  jobsRepo,
		storage:   store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		pageSize:  cfg.PageSize,
		fileTTL:   cfg.FileTTL,
	}
	s.queue = jobs.NewQueue(exportJobType, s.handleJob, jobs.QueueConfig{
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the artifact cleanup loop.
func (s *ExportService) Start(ctx context.Context, cleanupInterval time.Duration) {
	s.queue.Start(ctx)
	if cleanupInterval > 0 {
		go s.cleanupLoop(ctx, cleanupInterval)
	}
}

// Stop drains the worker queue.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers a new export job for the employee and schedules it.
func (s *ExportService) Enqueue(ctx context.Context, nroDocumento string, req dto.ExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	job := &models.ExportJob{
		ID:           uuid.NewString(),
		NroDocumento: nroDocumento,
		Format:       models.ExportFormat(req.Format),
		StatusFilter: req.StatusFilter,
		Search:       req.Search,
		Status:       models.ExportStatusQueued,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.jobsRepo.Save(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType, Payload: job.ID}); err != nil {
		job.Status = models.ExportStatusFailed
		job.Error = "export queue unavailable"
		if saveErr := s.jobsRepo.Save(ctx, job); saveErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(saveErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export job")
	}
	return job, nil
}

// Status returns the job state. Jobs belong to the employee that created
// them.
func (s *ExportService) Status(ctx context.Context, nroDocumento, jobID string) (*models.ExportJob, error) {
	job, err := s.jobsRepo.Find(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrExportJobNotFound) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.NroDocumento != nroDocumento {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// Resolve validates a signed download token and opens the artifact.
func (s *ExportService) Resolve(token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		s.logger.Warn("export artifact missing", zap.String("job_id", jobID), zap.String("path", relPath), zap.Error(err))
		return nil, "", appErrors.ErrNotFound
	}
	return file, filepath.Base(relPath), nil
}

// Cleanup removes expired artifacts and returns how many were deleted.
func (s *ExportService) Cleanup() (int, error) {
	deleted, err := s.storage.CleanupOlderThan(s.fileTTL)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export cleanup failed")
	}
	return len(deleted), nil
}

func (s *ExportService) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup()
			if err != nil {
				s.logger.Warn("scheduled export cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired export artifacts removed", zap.Int("count", n))
			}
		}
	}
}

func (s *ExportService) handleJob(ctx context.Context, queued jobs.Job) error {
	jobID, ok := queued.Payload.(string)
	if !ok || jobID == "" {
		s.logger.Error("export job carries no id", zap.String("queue_job", queued.ID))
		return nil
	}

	job, err := s.jobsRepo.Find(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}

	job.Status = models.ExportStatusRunning
	if err := s.jobsRepo.Save(ctx, job); err != nil {
		s.logger.Warn("failed to mark export job running", zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := s.process(ctx, job); err != nil {
		job.Status = models.ExportStatusFailed
		job.Error = err.Error()
		now := time.Now().UTC()
		job.CompletedAt = &now
		if saveErr := s.jobsRepo.Save(ctx, job); saveErr != nil {
			s.logger.Warn("failed to persist failed export job", zap.String("job_id", job.ID), zap.Error(saveErr))
		}
		if s.metrics != nil {
			s.metrics.IncExportJob(string(models.ExportStatusFailed))
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.IncExportJob(string(models.ExportStatusCompleted))
	}
	return nil
}

func (s *ExportService) process(ctx context.Context, job *models.ExportJob) error {
	rows, err := s.collect(ctx, job)
	if err != nil {
		return err
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: rows}

	var rendered []byte
	switch job.Format {
	case models.ExportFormatPDF:
		rendered, err = s.pdf.Render(dataset, "Papeletas de Salida")
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	relPath := fmt.Sprintf("%s/%s.%s", job.NroDocumento, job.ID, job.Format)
	if _, err := s.storage.Save(relPath, rendered); err != nil {
		return fmt.Errorf("store export: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return fmt.Errorf("sign export url: %w", err)
	}

	now := time.Now().UTC()
	job.Status = models.ExportStatusCompleted
	job.FilePath = relPath
	job.DownloadURL = "/exports/download?token=" + token
	job.CompletedAt = &now
	job.ExpiresAt = &expiresAt
	job.Error = ""
	if err := s.jobsRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("persist completed export job: %w", err)
	}
	return nil
}

// collect pages through the remote listing until the server reports no
// further pages.
func (s *ExportService) collect(ctx context.Context, job *models.ExportJob) ([]map[string]string, error) {
	rows := make([]map[string]string, 0)
	page := 1
	for {
		papeletas, pagination, err := s.remote.Listar(ctx, models.ListQuery{
			NroDocumento: job.NroDocumento,
			Page:         page,
			PageSize:     s.pageSize,
			StatusFilter: job.StatusFilter,
			Search:       job.Search,
		})
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		for _, p := range papeletas {
			rows = append(rows, map[string]string{
				"Numero":       p.NumeroPapeleta,
				"Fecha":        p.FechaPapeleta,
				"Hora Salida":  p.HoraSalida,
				"Hora Retorno": p.HoraRetorno,
				"Destino":      p.LugarDestino,
				"Motivo":       motivoLabel(p),
				"Estado":       estadoLabel(p.Estado),
			})
		}
		if page >= pagination.TotalPages || len(papeletas) == 0 {
			return rows, nil
		}
		page++
	}
}

func motivoLabel(p models.Papeleta) string {
	if p.Motivo != "" {
		return fmt.Sprintf("%s: %s", p.MotivoNombre, p.Motivo)
	}
	return p.MotivoNombre
}

func estadoLabel(estado models.Estado) string {
	switch estado {
	case models.EstadoAprobada:
		return "Aprobada"
	case models.EstadoRechazada:
		return "Rechazada"
	default:
		return "Pendiente"
	}
}
