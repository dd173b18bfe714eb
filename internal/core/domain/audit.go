package domain

import (
	"errors"
	"strings"
	"time"
)

type AuditAction string

const (
	AuditArchive      AuditAction = "archive"
	AuditRecategorize AuditAction = "recategorize"
)

// AuditEntry records a manual change to a document.
type AuditEntry struct {
	ID         string      `json:"id"`
	Action     AuditAction `json:"action"`
	DocumentID string      `json:"document_id"`
	Detail     string      `json:"detail,omitempty"`
	At         time.Time   `json:"created_at"`
}

func (e AuditEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return WrapError(ErrInvalidInput, "audit entry", errors.New("id is required"))
	case e.Action != AuditArchive && e.Action != AuditRecategorize:
		return WrapError(ErrInvalidInput, "audit entry", errors.New("unknown action "+string(e.Action)))
	case strings.TrimSpace(e.DocumentID) == "":
		return WrapError(ErrInvalidInput, "audit entry", errors.New("document_id is required"))
	}
	return nil
}
