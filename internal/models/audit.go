package models

import "time"

// Audit actions journalled by the gateway.
const (
	AuditActionLogin    = "LOGIN"
	AuditActionLogout   = "LOGOUT"
	AuditActionRegistro = "REGISTRO_PAPELETA"
	AuditActionExport   = "EXPORT"
)

// AuditLog is an insert-only journal entry. The gateway holds no
// authoritative papeleta state, so the journal exists purely for traceability.
type AuditLog struct {
	ID           int64     `db:"id" json:"id"`
	NroDocumento string    `db:"nro_documento" json:"nro_documento"`
	Action       string    `db:"action" json:"action"`
	Resource     string    `db:"resource" json:"resource"`
	ResourceID   *string   `db:"resource_id" json:"resource_id,omitempty"`
	Payload      []byte    `db:"payload" json:"payload,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
