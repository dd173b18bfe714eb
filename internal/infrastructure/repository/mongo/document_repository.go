package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const maxMutationAttempts = 3

type DocumentRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewDocumentRepository(db *mongo.Database) *DocumentRepository {
	return &DocumentRepository{
		coll: db.Collection(documentsCollection),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	rec := toDocumentRecord(doc)
	rec.Version = 1
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.WrapError(domain.ErrConflict, "insert document", err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	rec, err := r.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *DocumentRepository) findRecord(ctx context.Context, id string) (*documentRecord, error) {
	var rec documentRecord
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &rec, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.Document, 0)
	for cursor.Next(ctx) {
		var rec documentRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, *rec.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func listFilter(filter domain.DocumentFilter) bson.M {
	out := bson.M{}
	if filter.CategoryID != "" {
		out["category_id"] = filter.CategoryID
	}
	if q := strings.TrimSpace(filter.NameQuery); q != "" {
		out["filename"] = primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	}
	return out
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	return r.mutate(ctx, id, domain.SetStatus(status, errMessage))
}

func (r *DocumentRepository) SaveProcessingResult(ctx context.Context, id string, result domain.ProcessingResult) error {
	return r.mutate(ctx, id, domain.ApplyProcessingResult(result))
}

func (r *DocumentRepository) UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) error {
	return r.mutate(ctx, id, domain.ReplaceKeyValues(kvs))
}

func (r *DocumentRepository) UpdateCategory(ctx context.Context, id, categoryID string, status domain.DocumentStatus) error {
	return r.mutate(ctx, id, domain.AssignCategory(categoryID, status, r.now()))
}

func (r *DocumentRepository) Archive(ctx context.Context, id string, at time.Time) error {
	return r.mutate(ctx, id, domain.MarkArchived(at))
}

func (r *DocumentRepository) CountActiveByCategory(ctx context.Context, categoryID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"category_id": categoryID,
		"status":      bson.M{"$ne": string(domain.StatusArchived)},
	})
	if err != nil {
		return 0, fmt.Errorf("count category documents: %w", err)
	}
	return int(n), nil
}

// mutate replaces the document only if nobody changed it since it was read (compare on
// version) and retries a few times when it lost the race.
func (r *DocumentRepository) mutate(ctx context.Context, id string, m domain.Mutation) error {
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		current, err := r.findRecord(ctx, id)
		if err != nil {
			return err
		}
		next, err := current.toDomain().Apply(r.now(), m)
		if err != nil {
			return err
		}
		rec := toDocumentRecord(next)
		rec.Version = current.Version + 1

		res, err := r.coll.ReplaceOne(ctx, versionGuard(id, current.Version), rec)
		if err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return domain.WrapError(domain.ErrConflict, "update document", fmt.Errorf("id=%s changed concurrently", id))
}

// versionGuard matches the record read at version; records written before versioning
// have no field and read back as zero.
func versionGuard(id string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": id, "version": version}
}
