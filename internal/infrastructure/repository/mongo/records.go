package mongo

import (
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type keyValueRecord struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

type documentRecord struct {
	ID          string           `bson:"_id"`
	Filename    string           `bson:"filename"`
	ContentType string           `bson:"content_type"`
	FileID      string           `bson:"file_id"`
	Status      string           `bson:"status"`
	CategoryID  *string          `bson:"category_id"`
	KeyValues   []keyValueRecord `bson:"kv_data"`
	Text        *string          `bson:"text,omitempty"`
	Embedding   []float32        `bson:"embedding,omitempty"`
	Error       string           `bson:"error_message,omitempty"`
	CreatedAt   time.Time        `bson:"created_at"`
	ProcessedAt *time.Time       `bson:"processed_at,omitempty"`
	ArchivedAt  *time.Time       `bson:"archived_at,omitempty"`
	UpdatedAt   time.Time        `bson:"updated_at"`
	Version     int64            `bson:"version"`
}

type categoryRecord struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
}

type auditRecord struct {
	ID         string    `bson:"_id"`
	Action     string    `bson:"action"`
	DocumentID string    `bson:"document_id"`
	Detail     string    `bson:"detail"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toDocumentRecord(doc *domain.Document) documentRecord {
	rec := documentRecord{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileID:      doc.FileID,
		Status:      string(doc.Status),
		CategoryID:  optional(doc.CategoryID),
		KeyValues:   make([]keyValueRecord, 0, len(doc.KeyValues)),
		Text:        optional(doc.Text),
		Embedding:   doc.Embedding,
		Error:       doc.Error,
		CreatedAt:   doc.CreatedAt,
		ProcessedAt: doc.ProcessedAt,
		ArchivedAt:  doc.ArchivedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, kv := range doc.KeyValues {
		rec.KeyValues = append(rec.KeyValues, keyValueRecord{Key: kv.Key, Value: kv.Value})
	}
	return rec
}

func (r documentRecord) toDomain() *domain.Document {
	doc := &domain.Document{
		ID:          r.ID,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		FileID:      r.FileID,
		Status:      domain.DocumentStatus(r.Status),
		KeyValues:   make([]domain.KeyValue, 0, len(r.KeyValues)),
		Embedding:   r.Embedding,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt.UTC(),
		ProcessedAt: utcPtr(r.ProcessedAt),
		ArchivedAt:  utcPtr(r.ArchivedAt),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.CategoryID != nil {
		doc.CategoryID = *r.CategoryID
	}
	if r.Text != nil {
		doc.Text = *r.Text
	}
	for _, kv := range r.KeyValues {
		doc.KeyValues = append(doc.KeyValues, domain.KeyValue{Key: kv.Key, Value: kv.Value})
	}
	return doc
}

func (r categoryRecord) toDomain() domain.Category {
	return domain.Category{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt.UTC()}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
