// Package sqlrow maps documents and categories to and from database/sql rows shared by the
// SQL-backed repositories.
package sqlrow

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// DocumentColumns is the select list ScanDocument expects, in order.
const DocumentColumns = `id, filename, content_type, file_id, status, category_id, kv_data, text, embedding, error_message, created_at, processed_at, archived_at, updated_at`

type Scanner interface {
	Scan(dest ...any) error
}

func ScanDocument(s Scanner) (*domain.Document, error) {
	var (
		doc         domain.Document
		status      string
		categoryID  sql.NullString
		kvRaw       []byte
		text        sql.NullString
		embRaw      []byte
		errMessage  sql.NullString
		processedAt sql.NullTime
		archivedAt  sql.NullTime
	)
	err := s.Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.FileID, &status, &categoryID, &kvRaw,
		&text, &embRaw, &errMessage, &doc.CreatedAt, &processedAt, &archivedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)
	doc.CategoryID = categoryID.String
	doc.Text = text.String
	doc.Error = errMessage.String
	if doc.KeyValues, err = DecodeKeyValues(kvRaw); err != nil {
		return nil, err
	}
	if doc.Embedding, err = DecodeEmbedding(embRaw); err != nil {
		return nil, err
	}
	doc.ProcessedAt = timePtr(processedAt)
	doc.ArchivedAt = timePtr(archivedAt)
	return &doc, nil
}

// DocumentArgs returns the values for DocumentColumns in order.
func DocumentArgs(doc *domain.Document) ([]any, error) {
	kv, err := EncodeKeyValues(doc.KeyValues)
	if err != nil {
		return nil, err
	}
	emb, err := EncodeEmbedding(doc.Embedding)
	if err != nil {
		return nil, err
	}
	return []any{
		doc.ID, doc.Filename, doc.ContentType, doc.FileID, string(doc.Status), NullString(doc.CategoryID), kv,
		NullString(doc.Text), emb, NullString(doc.Error), doc.CreatedAt, NullTime(doc.ProcessedAt),
		NullTime(doc.ArchivedAt), doc.UpdatedAt,
	}, nil
}

func EncodeKeyValues(kvs []domain.KeyValue) (string, error) {
	if kvs == nil {
		kvs = []domain.KeyValue{}
	}
	raw, err := json.Marshal(kvs)
	if err != nil {
		return "", fmt.Errorf("marshal kv_data: %w", err)
	}
	return string(raw), nil
}

func DecodeKeyValues(raw []byte) ([]domain.KeyValue, error) {
	out := []domain.KeyValue{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal kv_data: %w", err)
	}
	return out, nil
}

// EncodeEmbedding returns nil for an empty vector so the column stays NULL.
func EncodeEmbedding(vec []float32) (any, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return string(raw), nil
}

func DecodeEmbedding(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return out, nil
}

func NullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func NullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
