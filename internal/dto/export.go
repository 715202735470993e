package dto

// ExportRequest queues a roster export for the authenticated employee.
type ExportRequest struct {
	Format       string `json:"format" validate:"required,oneof=csv pdf"`
	StatusFilter int    `json:"filtro_estado" validate:"gte=0,lte=2"`
	Search       string `json:"busqueda"`
}
