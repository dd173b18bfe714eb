package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusQueued    DocumentStatus = "Queued"
	StatusUploaded  DocumentStatus = "Uploaded"
	StatusPending   DocumentStatus = "Pending"
	StatusProcessed DocumentStatus = "Processed"
	StatusUnknown   DocumentStatus = "Unknown"
	StatusArchived  DocumentStatus = "Archived"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusUploaded, StatusPending, StatusProcessed, StatusUnknown, StatusArchived:
		return true
	default:
		return false
	}
}

// Processable reports whether a processing run may start from this status.
func (s DocumentStatus) Processable() bool {
	switch s {
	case StatusQueued, StatusUploaded, StatusPending, StatusUnknown:
		return true
	default:
		return false
	}
}

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	FileID      string         `json:"file_id"`
	Status      DocumentStatus `json:"status"`
	CategoryID  string         `json:"category_id,omitempty"`
	KeyValues   []KeyValue     `json:"kv_data"`
	Text        string         `json:"text,omitempty"`
	Embedding   []float32      `json:"embedding,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (d *Document) HasCategory() bool {
	return strings.TrimSpace(d.CategoryID) != ""
}

func (d *Document) IsArchived() bool {
	return d.Status == StatusArchived
}

// Validate checks the record invariants every store write must satisfy.
func (d *Document) Validate() error {
	var problems []string
	if strings.TrimSpace(d.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(d.Filename) == "" {
		problems = append(problems, "filename is required")
	}
	if strings.TrimSpace(d.ContentType) == "" {
		problems = append(problems, "content_type is required")
	}
	if strings.TrimSpace(d.FileID) == "" {
		problems = append(problems, "file_id is required")
	}
	if !d.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unsupported status %q", d.Status))
	}
	if d.CreatedAt.IsZero() {
		problems = append(problems, "created_at is required")
	}
	if d.Status == StatusProcessed {
		if !d.HasCategory() {
			problems = append(problems, "processed document requires a category")
		}
		if strings.TrimSpace(d.Text) == "" {
			problems = append(problems, "processed document requires extracted text")
		}
	}
	if err := ValidateKeyValues(d.KeyValues); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return WrapError(ErrInvalidInput, "validate document", errors.New(strings.Join(problems, "; ")))
}

// DocumentFilter narrows repository listings. Zero value lists everything.
type DocumentFilter struct {
	CategoryID string
	NameQuery  string
}

// ProcessingResult is what a successful extraction/classification run writes back.
type ProcessingResult struct {
	Status      DocumentStatus
	CategoryID  string
	Text        string
	KeyValues   []KeyValue
	Embedding   []float32
	Error       string
	ProcessedAt *time.Time
}

// Analysis is the AI backend's view of a document's text.
type Analysis struct {
	Category  string     `json:"category"`
	KeyValues []KeyValue `json:"kvps"`
}

type UploadRequest struct {
	Filename    string
	ContentType string
	CategoryID  string
}
