package domain

import (
	"errors"
	"time"
)

// Mutation changes a document in place. Repositories run it inside their own
// read-modify-write unit.
type Mutation func(*Document) error

// Apply runs m on a copy of d and returns the validated next state. Archived documents only
// accept mutations that keep them archived.
func (d Document) Apply(now time.Time, m Mutation) (*Document, error) {
	next := d
	next.KeyValues = append([]KeyValue(nil), d.KeyValues...)
	if err := m(&next); err != nil {
		return nil, err
	}
	if d.IsArchived() && !next.IsArchived() {
		return nil, WrapError(ErrConflict, "update document", errors.New("document is archived"))
	}
	if d.ProcessedAt != nil {
		next.ProcessedAt = d.ProcessedAt
	}
	if d.ArchivedAt != nil {
		next.ArchivedAt = d.ArchivedAt
	}
	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

func SetStatus(status DocumentStatus, errMessage string) Mutation {
	return func(d *Document) error {
		d.Status = status
		d.Error = errMessage
		return nil
	}
}

func ApplyProcessingResult(result ProcessingResult) Mutation {
	return func(d *Document) error {
		d.Status = result.Status
		d.CategoryID = result.CategoryID
		d.Text = result.Text
		d.KeyValues = result.KeyValues
		d.Embedding = result.Embedding
		d.Error = result.Error
		d.ProcessedAt = result.ProcessedAt
		return nil
	}
}

func ReplaceKeyValues(kvs []KeyValue) Mutation {
	return func(d *Document) error {
		d.KeyValues = NormalizeKeyValues(kvs)
		return nil
	}
}

func AssignCategory(categoryID string, status DocumentStatus, now time.Time) Mutation {
	return func(d *Document) error {
		d.CategoryID = categoryID
		d.Status = status
		if status == StatusProcessed {
			d.Error = ""
			if d.ProcessedAt == nil {
				d.ProcessedAt = &now
			}
		}
		return nil
	}
}

func MarkArchived(at time.Time) Mutation {
	return func(d *Document) error {
		d.Status = StatusArchived
		if d.ArchivedAt == nil {
			d.ArchivedAt = &at
		}
		return nil
	}
}
