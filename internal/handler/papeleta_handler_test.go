package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muni-gth/papeletas-api/internal/middleware"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/remote"
	"github.com/muni-gth/papeletas-api/internal/service"
	"github.com/muni-gth/papeletas-api/internal/store"
	"github.com/muni-gth/papeletas-api/pkg/config"
)

type fakeRemote struct {
	mu sync.Mutex

	resumen    *remote.Resumen
	resumenErr error

	listPapeletas  []models.Papeleta
	listPagination models.Pagination
	lastQuery      models.ListQuery

	registro      *remote.RegistroResult
	registroErr   error
	registroCalls int

	pdf    []byte
	pdfErr error
}

func (f *fakeRemote) ResumenInicial(_ context.Context, _ string) (*remote.Resumen, error) {
	if f.resumenErr != nil {
		return nil, f.resumenErr
	}
	return f.resumen, nil
}

func (f *fakeRemote) Listar(_ context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	return f.listPapeletas, f.listPagination, nil
}

func (f *fakeRemote) Registrar(_ context.Context, _ models.RegistroPapeleta, _ *models.Attachment) (*remote.RegistroResult, error) {
	f.mu.Lock()
	f.registroCalls++
	f.mu.Unlock()
	if f.registroErr != nil {
		return nil, f.registroErr
	}
	return f.registro, nil
}

func (f *fakeRemote) GenerarPDF(_ context.Context, _ string) ([]byte, error) {
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return f.pdf, nil
}

func handlerResumen() *remote.Resumen {
	return &remote.Resumen{
		Identity: models.Identity{
			NroDocumento: "12345678",
			Contrato:     models.Contrato{CodigoContrato: "C-9", NombreCompleto: "Juana Quispe"},
			Motivos: []models.Motivo{
				{IDMotivo: "1", Nombre: "COMISION DE SERVICIO"},
				{IDMotivo: "5", Nombre: "OTROS"},
			},
		},
		Papeletas:  []models.Papeleta{{IDPapeleta: "10", NumeroPapeleta: "N-0010", Estado: models.EstadoPendiente}},
		Pagination: models.Pagination{TotalRecords: 1, TotalPages: 1, CurrentPage: 1},
	}
}

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
}

func newPapeletaFixture(t *testing.T, remoteAPI *fakeRemote) (*PapeletaHandler, *store.Session) {
	t.Helper()
	if remoteAPI.resumen == nil {
		remoteAPI.resumen = handlerResumen()
	}
	registry := store.NewRegistry(remoteAPI, nil, nil, 9)
	session := registry.GetOrCreate("s-1")
	_, err := session.Store.Authenticate(context.Background(), "12345678")
	require.NoError(t, err)

	svc := service.NewPapeletaService(remoteAPI, nil, nil, nil, nil, config.AttachmentsConfig{
		MaxFileSizeBytes: 5 * 1024 * 1024,
		AllowedMIMEs:     []string{"image/png", "image/jpeg", "application/pdf"},
	}, 9)
	return NewPapeletaHandler(svc), session
}

func TestListHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{
		listPapeletas:  []models.Papeleta{{IDPapeleta: "10", NumeroPapeleta: "N-0010"}},
		listPagination: models.Pagination{TotalRecords: 12, TotalPages: 2, CurrentPage: 1},
	}
	handler, session := newPapeletaFixture(t, remoteAPI)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papeletas?filtro_estado=1&busqueda=lima", nil)
	c.Set(middleware.ContextSessionKey, session)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 2, envelope.Pagination["totalPages"])
	assert.Equal(t, 1, remoteAPI.lastQuery.StatusFilter)
	assert.Equal(t, "lima", remoteAPI.lastQuery.Search)
}

func TestListHandlerRejectsBadPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, session := newPapeletaFixture(t, &fakeRemote{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papeletas?pagina=abc", nil)
	c.Set(middleware.ContextSessionKey, session)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandlerWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newPapeletaFixture(t, &fakeRemote{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papeletas", nil)

	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func registrationForm(fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func validFormFields() map[string]string {
	return map[string]string{
		"id_motivo":      "1",
		"fecha_papeleta": "2026-08-31",
		"hora_salida":    "09:00",
		"hora_retorno":   "11:00",
		"lugar_destino":  "Municipalidad provincial",
	}
}

func TestRegisterHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{
		registro:       &remote.RegistroResult{IDPapeleta: "20", NumeroPapeleta: "N-0020", Mensaje: "registrada"},
		listPagination: models.Pagination{TotalRecords: 2, TotalPages: 1, CurrentPage: 1},
	}
	handler, session := newPapeletaFixture(t, remoteAPI)

	body, contentType := registrationForm(validFormFields())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papeletas", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextSessionKey, session)

	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	papeleta := envelope.Data["papeleta"].(map[string]interface{})
	assert.Equal(t, "N-0020", papeleta["numero_papeleta"])
	assert.Equal(t, "0", papeleta["estado"])
}

func TestRegisterHandlerOtrosWithoutDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{}
	handler, session := newPapeletaFixture(t, remoteAPI)

	fields := validFormFields()
	fields["id_motivo"] = "5"
	body, contentType := registrationForm(fields)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papeletas", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextSessionKey, session)

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "OTROS")
	assert.Equal(t, 0, remoteAPI.registroCalls)
}

func TestRegisterHandlerMissingField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{}
	handler, session := newPapeletaFixture(t, remoteAPI)

	fields := validFormFields()
	delete(fields, "lugar_destino")
	body, contentType := registrationForm(fields)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papeletas", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextSessionKey, session)

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, remoteAPI.registroCalls)
}

func TestRegisterHandlerWithAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{
		registro: &remote.RegistroResult{IDPapeleta: "21", NumeroPapeleta: "N-0021"},
	}
	handler, session := newPapeletaFixture(t, remoteAPI)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range validFormFields() {
		require.NoError(t, writer.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="archivo"; filename="constancia.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papeletas", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Set(middleware.ContextSessionKey, session)

	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, remoteAPI.registroCalls)
}

func TestDocumentHandlerStreamsPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{pdf: []byte("%PDF-1.4 contenido")}
	handler, session := newPapeletaFixture(t, remoteAPI)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papeletas/15/documento", nil)
	c.Params = gin.Params{{Key: "id", Value: "15"}}
	c.Set(middleware.ContextSessionKey, session)

	handler.Document(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "papeleta_15.pdf")
	assert.Equal(t, "%PDF-1.4 contenido", rec.Body.String())
}

func TestDocumentHandlerRemoteRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	remoteAPI := &fakeRemote{pdfErr: &remote.RejectedError{Codigo: 1, Mensaje: "papeleta no encontrada"}}
	handler, session := newPapeletaFixture(t, remoteAPI)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papeletas/404/documento", nil)
	c.Params = gin.Params{{Key: "id", Value: "404"}}
	c.Set(middleware.ContextSessionKey, session)

	handler.Document(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "papeleta no encontrada")
}
