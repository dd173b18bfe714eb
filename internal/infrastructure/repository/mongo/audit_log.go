package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type AuditLog struct {
	coll *mongo.Collection
}

func NewAuditLog(db *mongo.Database) *AuditLog {
	return &AuditLog{coll: db.Collection(auditCollection)}
}

func (a *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	rec := auditRecord{
		ID:         entry.ID,
		Action:     string(entry.Action),
		DocumentID: entry.DocumentID,
		Detail:     entry.Detail,
		CreatedAt:  entry.At.UTC(),
	}
	if _, err := a.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (a *AuditLog) ListByDocument(ctx context.Context, documentID string) ([]domain.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := a.coll.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.AuditEntry, 0)
	for cursor.Next(ctx) {
		var rec auditRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, domain.AuditEntry{
			ID:         rec.ID,
			Action:     domain.AuditAction(rec.Action),
			DocumentID: rec.DocumentID,
			Detail:     rec.Detail,
			At:         rec.CreatedAt.UTC(),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
