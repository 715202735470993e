package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/muni-gth/papeletas-api/internal/models"
)

// AuditRepository journals gateway actions in Postgres. Insert-only.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository builds an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAuditLog = `
	INSERT INTO gateway_audit_log
		(nro_documento, action, resource, resource_id, payload, ip_address, user_agent, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

// Record inserts one journal entry.
func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRowxContext(ctx, insertAuditLog,
		entry.NroDocumento,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Payload,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// RecentForDocument returns the latest journal entries for an employee,
// newest first.
func (r *AuditRepository) RecentForDocument(ctx context.Context, nroDocumento string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, nro_documento, action, resource, resource_id, payload, ip_address, user_agent, created_at
		FROM gateway_audit_log
		WHERE nro_documento = $1
		ORDER BY created_at DESC
		LIMIT $2`

	entries := make([]models.AuditLog, 0, limit)
	if err := r.db.SelectContext(ctx, &entries, query, nroDocumento, limit); err != nil {
		return nil, fmt.Errorf("select audit log: %w", err)
	}
	return entries, nil
}
