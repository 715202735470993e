package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/service"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
	"github.com/muni-gth/papeletas-api/pkg/response"
)

const attachmentField = "archivo"

// PapeletaHandler wires the listing, registration and document endpoints.
type PapeletaHandler struct {
	service *service.PapeletaService
}

// NewPapeletaHandler creates a new handler.
func NewPapeletaHandler(svc *service.PapeletaService) *PapeletaHandler {
	return &PapeletaHandler{service: svc}
}

// List godoc
// @Summary List papeletas
// @Description Return one page of the employee's papeletas applying status filter and search
// @Tags Papeletas
// @Produce json
// @Security BearerAuth
// @Param pagina query int false "Page number (defaults to current page)"
// @Param filtro_estado query int false "Status filter: 0 all, 1 approved, 2 pending"
// @Param busqueda query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /papeletas [get]
func (h *PapeletaHandler) List(c *gin.Context) {
	params := dto.ListParams{
		Search: c.Query("busqueda"),
	}

	if raw := c.Query("pagina"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pagina must be an integer"))
			return
		}
		params.Page = page
	}
	if raw := c.DefaultQuery("filtro_estado", "0"); raw != "" {
		filter, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "filtro_estado must be an integer"))
			return
		}
		params.StatusFilter = filter
	}

	res, pagination, err := h.service.List(c.Request.Context(), sessionFromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, pagination)
}

// Register godoc
// @Summary Register papeleta
// @Description Register a new papeleta with an optional file attachment
// @Tags Papeletas
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id_motivo formData string true "Motive id"
// @Param fecha_papeleta formData string true "Date"
// @Param hora_salida formData string true "Exit time"
// @Param hora_retorno formData string true "Return time"
// @Param lugar_destino formData string true "Destination"
// @Param motivo formData string false "Motive detail, required for OTROS"
// @Param archivo formData file false "Supporting document (png, jpg or pdf, max 5MB)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /papeletas [post]
func (h *PapeletaHandler) Register(c *gin.Context) {
	var req dto.RegisterPapeletaRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid papeleta payload"))
		return
	}

	attachment, err := h.readAttachment(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.Register(c.Request.Context(), sessionFromContext(c), req, attachment, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Document godoc
// @Summary Download papeleta document
// @Description Stream the rendered PDF for one papeleta
// @Tags Papeletas
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Papeleta id"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /papeletas/{id}/documento [get]
func (h *PapeletaHandler) Document(c *gin.Context) {
	pdf, filename, err := h.service.Document(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *PapeletaHandler) readAttachment(c *gin.Context) (*models.Attachment, error) {
	fileHeader, err := c.FormFile(attachmentField)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attachment")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read attachment")
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read attachment")
	}

	return &models.Attachment{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
