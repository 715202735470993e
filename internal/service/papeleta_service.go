package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/store"
	"github.com/muni-gth/papeletas-api/pkg/config"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
)

const otrosMarker = "OTROS"

type documentGenerator interface {
	GenerarPDF(ctx context.Context, idPapeleta string) ([]byte, error)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context, nroDocumento string) error
}

// PapeletaService fronts the papeleta listing and registration workflows.
type PapeletaService struct {
	documents   documentGenerator
	audit       AuditRecorder
	summaries   summaryInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	attachments config.AttachmentsConfig
	pageSize    int
}

// NewPapeletaService builds a PapeletaService.
func NewPapeletaService(documents documentGenerator, audit AuditRecorder, summaries summaryInvalidator, validate *validator.Validate, logger *zap.Logger, attachments config.AttachmentsConfig, pageSize int) *PapeletaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 9
	}
	return &PapeletaService{
		documents:   documents,
		audit:       audit,
		summaries:   summaries,
		validator:   validate,
		logger:      logger,
		attachments: attachments,
		pageSize:    pageSize,
	}
}

// List applies the listing controls to the session's controller and
// returns the resulting page with pagination affordances.
func (s *PapeletaService) List(ctx context.Context, session *store.Session, params dto.ListParams) (*dto.ListResponse, *models.Pagination, error) {
	if session == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if params.StatusFilter < models.FilterTodas || params.StatusFilter > models.FilterPendientes {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "filtro_estado must be 0, 1 or 2")
	}

	papeletas, pagination, err := session.Controller.Apply(ctx, params.StatusFilter, params.Search, params.Page)
	if err != nil {
		if errors.Is(err, store.ErrPageOutOfRange) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "requested page is out of range")
		}
		if errors.Is(err, store.ErrNotAuthenticated) {
			return nil, nil, appErrors.ErrSessionExpired
		}
		return nil, nil, mapRemoteError(err)
	}

	resp := &dto.ListResponse{
		Papeletas: papeletas,
		Window:    session.Controller.PageWindow(),
	}
	return resp, &pagination, nil
}

// Register validates a new papeleta and submits it through the session
// store. The OTROS rule is enforced before any network call: a motive
// whose label contains "OTROS" requires a non-blank detail.
func (s *PapeletaService) Register(ctx context.Context, session *store.Session, req dto.RegisterPapeletaRequest, attachment *models.Attachment, ip, userAgent string) (*dto.RegisterPapeletaResponse, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid papeleta payload")
	}

	snap := session.Store.Snapshot()
	if snap.Identity == nil {
		return nil, appErrors.ErrSessionExpired
	}

	motivo := snap.Identity.MotivoByID(req.IDMotivo)
	if motivo == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "motivo no reconocido")
	}
	if strings.Contains(strings.ToUpper(motivo.Nombre), otrosMarker) && strings.TrimSpace(req.Motivo) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Debe ingresar un detalle si selecciona el motivo 'OTROS'.")
	}

	if err := s.checkAttachment(attachment); err != nil {
		return nil, err
	}

	registro := models.RegistroPapeleta{
		IDEmpleadoContrato: snap.Identity.Contrato.CodigoContrato,
		IDMotivo:           req.IDMotivo,
		MotivoNombre:       motivo.Nombre,
		FechaPapeleta:      req.FechaPapeleta,
		HoraSalida:         req.HoraSalida,
		HoraRetorno:        req.HoraRetorno,
		LugarDestino:       req.LugarDestino,
		MotivoDetalle:      req.Motivo,
	}

	result, err := session.Store.SubmitRecord(ctx, registro, attachment, s.pageSize)
	if err != nil {
		if errors.Is(err, store.ErrNotAuthenticated) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, mapRemoteError(err)
	}

	s.emitRegistroAudit(ctx, snap.Identity.NroDocumento, registro, result.IDPapeleta, ip, userAgent)
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx, snap.Identity.NroDocumento); err != nil {
			s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
		}
	}

	return &dto.RegisterPapeletaResponse{
		Papeleta: models.Papeleta{
			IDPapeleta:     result.IDPapeleta,
			NumeroPapeleta: result.NumeroPapeleta,
			FechaPapeleta:  req.FechaPapeleta,
			HoraSalida:     req.HoraSalida,
			HoraRetorno:    req.HoraRetorno,
			LugarDestino:   req.LugarDestino,
			MotivoNombre:   motivo.Nombre,
			Motivo:         req.Motivo,
			Estado:         models.EstadoPendiente,
		},
		Mensaje: result.Mensaje,
	}, nil
}

// Document fetches the rendered PDF for a papeleta from the remote
// service. Pass-through: no store state changes.
func (s *PapeletaService) Document(ctx context.Context, session *store.Session, idPapeleta string) ([]byte, string, error) {
	if session == nil {
		return nil, "", appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(idPapeleta) == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "id_papeleta is required")
	}

	pdf, err := s.documents.GenerarPDF(ctx, idPapeleta)
	if err != nil {
		return nil, "", mapRemoteError(err)
	}
	return pdf, fmt.Sprintf("papeleta_%s.pdf", idPapeleta), nil
}

func (s *PapeletaService) checkAttachment(attachment *models.Attachment) error {
	if attachment == nil {
		return nil
	}
	if s.attachments.MaxFileSizeBytes > 0 && int64(len(attachment.Data)) > s.attachments.MaxFileSizeBytes {
		return appErrors.ErrAttachmentTooBig
	}
	if len(s.attachments.AllowedMIMEs) == 0 {
		return nil
	}
	for _, allowed := range s.attachments.AllowedMIMEs {
		if strings.EqualFold(allowed, attachment.ContentType) {
			return nil
		}
	}
	return appErrors.ErrAttachmentType
}

func (s *PapeletaService) emitRegistroAudit(ctx context.Context, nroDocumento string, registro models.RegistroPapeleta, idPapeleta, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"id_motivo":      registro.IDMotivo,
		"fecha_papeleta": registro.FechaPapeleta,
		"lugar_destino":  registro.LugarDestino,
	})
	var resourceID *string
	if idPapeleta != "" {
		resourceID = &idPapeleta
	}
	entry := &models.AuditLog{
		NroDocumento: nroDocumento,
		Action:       models.AuditActionRegistro,
		Resource:     "papeleta",
		ResourceID:   resourceID,
		Payload:      payload,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record registration audit", zap.Error(err))
	}
}
