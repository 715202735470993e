package models

// Estado is the approval status of a papeleta as encoded by the remote
// service: "0" pending, "1" approved, "2" rejected.
type Estado string

const (
	EstadoPendiente Estado = "0"
	EstadoAprobada  Estado = "1"
	EstadoRechazada Estado = "2"
)

// NormalizeEstado coerces unknown or missing status values to pending.
func NormalizeEstado(raw string) Estado {
	switch Estado(raw) {
	case EstadoAprobada:
		return EstadoAprobada
	case EstadoRechazada:
		return EstadoRechazada
	default:
		return EstadoPendiente
	}
}

// Papeleta is an employee exit slip. The remote service is authoritative;
// the gateway only ever holds server-confirmed copies.
type Papeleta struct {
	IDPapeleta     string `json:"id_papeleta"`
	NumeroPapeleta string `json:"numero_papeleta"`
	FechaPapeleta  string `json:"fecha_papeleta"`
	HoraSalida     string `json:"hora_salida"`
	HoraRetorno    string `json:"hora_retorno"`
	LugarDestino   string `json:"lugar_destino"`
	MotivoNombre   string `json:"motivo_nombre"`
	Motivo         string `json:"motivo,omitempty"`
	Estado         Estado `json:"estado"`
}

// Status filter codes accepted by the listing action. Zero means no filter.
const (
	FilterTodas      = 0
	FilterAprobadas  = 1
	FilterPendientes = 2
)

// ListQuery is the effective query tuple for one listing fetch.
type ListQuery struct {
	NroDocumento string
	Page         int
	PageSize     int
	StatusFilter int
	Search       string
}

// Pagination is the server-reported pagination metadata for the query that
// produced it. It is never recomputed locally.
type Pagination struct {
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

// RegistroPapeleta carries the fields of a new papeleta. The remote service
// assigns id_papeleta, numero_papeleta and estado.
type RegistroPapeleta struct {
	IDEmpleadoContrato string
	IDMotivo           string
	MotivoNombre       string
	FechaPapeleta      string
	HoraSalida         string
	HoraRetorno        string
	LugarDestino       string
	MotivoDetalle      string
}

// Attachment is an optional file forwarded with a registration.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
