package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Contrato identifies the employment contract of the authenticated employee.
type Contrato struct {
	CodigoContrato string `json:"codigo_Contrato"`
	NombreCompleto string `json:"nombre_completo"`
}

// Motivo is a predefined reason code for a papeleta.
type Motivo struct {
	IDMotivo string `json:"id_motivo"`
	Nombre   string `json:"motivo"`
}

// Identity is the session identity created on a successful DNI login.
// Immutable for the session; destroyed on logout.
type Identity struct {
	NroDocumento string   `json:"nro_documento"`
	Contrato     Contrato `json:"contrato"`
	Motivos      []Motivo `json:"motivos"`
}

// MotivoByID returns the motivo with the given id, or nil.
func (i *Identity) MotivoByID(id string) *Motivo {
	if i == nil {
		return nil
	}
	for idx := range i.Motivos {
		if i.Motivos[idx].IDMotivo == id {
			return &i.Motivos[idx]
		}
	}
	return nil
}

// Session is the persisted record of an authenticated gateway session.
type Session struct {
	ID           string    `json:"id"`
	NroDocumento string    `json:"nro_documento"`
	Identity     Identity  `json:"identity"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionClaims is the JWT payload for gateway session tokens.
type SessionClaims struct {
	SessionID    string `json:"session_id"`
	NroDocumento string `json:"nro_documento"`
	jwt.RegisteredClaims
}
