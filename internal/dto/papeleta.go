package dto

import (
	"time"

	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/store"
)

// LoginRequest authenticates an employee by DNI.
type LoginRequest struct {
	NroDocumento string `json:"nro_documento" validate:"required,len=8,numeric"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// LoginResponse returns the session token and the initial resumen.
type LoginResponse struct {
	Token      string            `json:"token"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Identity   models.Identity   `json:"identity"`
	Papeletas  []models.Papeleta `json:"papeletas"`
	Pagination models.Pagination `json:"pagination"`
}

// ListParams are the user-facing listing controls. Zero values mean "keep
// the current page" and "no filter".
type ListParams struct {
	Page         int
	StatusFilter int
	Search       string
}

// ListResponse carries one page of papeletas plus the pagination
// affordances derived by the controller.
type ListResponse struct {
	Papeletas []models.Papeleta `json:"papeletas"`
	Window    store.PageWindow  `json:"window"`
}

// RegisterPapeletaRequest carries the registration form fields. The file
// attachment travels separately as a multipart part.
type RegisterPapeletaRequest struct {
	IDMotivo      string `form:"id_motivo" validate:"required"`
	FechaPapeleta string `form:"fecha_papeleta" validate:"required"`
	HoraSalida    string `form:"hora_salida" validate:"required"`
	HoraRetorno   string `form:"hora_retorno" validate:"required"`
	LugarDestino  string `form:"lugar_destino" validate:"required"`
	Motivo        string `form:"motivo"`
}

// RegisterPapeletaResponse returns the server-confirmed papeleta.
type RegisterPapeletaResponse struct {
	Papeleta models.Papeleta `json:"papeleta"`
	Mensaje  string          `json:"mensaje"`
}

// SummaryResponse backs the dashboard stat cards. Pendientes counts
// everything not yet approved, matching the legacy dashboard.
type SummaryResponse struct {
	Total      int `json:"total"`
	Aprobadas  int `json:"aprobadas"`
	Pendientes int `json:"pendientes"`
}
