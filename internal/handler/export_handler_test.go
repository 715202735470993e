package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muni-gth/papeletas-api/internal/middleware"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/repository"
	"github.com/muni-gth/papeletas-api/internal/service"
	"github.com/muni-gth/papeletas-api/pkg/storage"
)

type memExportRepo struct {
	mu   sync.Mutex
	jobs map[string]models.ExportJob
}

func (m *memExportRepo) Save(_ context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = make(map[string]models.ExportJob)
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memExportRepo) Find(_ context.Context, id string) (*models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrExportJobNotFound
	}
	return &job, nil
}

func newExportFixture(t *testing.T) (*ExportHandler, *service.ExportService, *memExportRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	repo := &memExportRepo{}
	remoteAPI := &fakeRemote{
		listPapeletas:  []models.Papeleta{{NumeroPapeleta: "N-0001", Estado: models.EstadoPendiente}},
		listPagination: models.Pagination{TotalRecords: 1, TotalPages: 1, CurrentPage: 1},
	}
	svc := service.NewExportService(remoteAPI, repo, store, signer, nil, nil, nil, service.ExportServiceConfig{
		PageSize: 50,
		FileTTL:  time.Hour,
	})
	return NewExportHandler(svc), svc, repo
}

func exportClaims() *models.SessionClaims {
	return &models.SessionClaims{SessionID: "s-1", NroDocumento: "12345678"}
}

func TestExportCreateQueuesJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, svc, _ := newExportFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 0)
	defer svc.Stop()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{"format":"csv"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextClaimsKey, exportClaims())

	handler.Create(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "12345678", envelope.Data["nro_documento"])
	assert.NotEmpty(t, envelope.Data["id"])
}

func TestExportCreateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newExportFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{"format":"csv"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExportCreateRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, svc, _ := newExportFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 0)
	defer svc.Stop()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{"format":"xlsx"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextClaimsKey, exportClaims())

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportStatusOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, repo := newExportFixture(t)

	require.NoError(t, repo.Save(context.Background(), &models.ExportJob{
		ID:           "job-1",
		NroDocumento: "87654321",
		Format:       models.ExportFormatCSV,
		Status:       models.ExportStatusQueued,
	}))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextClaimsKey, exportClaims())

	handler.Status(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newExportFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exports/download", nil)

	handler.Download(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newExportFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exports/download?token=bad.token.here.sig", nil)

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
