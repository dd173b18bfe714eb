package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, document_id, detail, created_at) VALUES (?,?,?,?,?)`,
		entry.ID, string(entry.Action), entry.DocumentID, entry.Detail, entry.At.UTC())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (a *AuditLog) ListByDocument(ctx context.Context, documentID string) ([]domain.AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, action, document_id, detail, created_at FROM audit_log WHERE document_id = ? ORDER BY created_at, id`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e      domain.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.DocumentID, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = domain.AuditAction(action)
		e.At = e.At.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
