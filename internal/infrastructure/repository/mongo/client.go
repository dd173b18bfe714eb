// Package mongo is the MongoDB document store used when STORE_DRIVER=mongo.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection  = "documents"
	categoriesCollection = "categories"
	auditCollection      = "audit_log"
	chunksCollection     = "document_chunks"
	vectorIndexName      = "vector_index"
)

// caseInsensitive matches category names regardless of case.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureSchema creates validated collections, secondary indexes and, where the deployment
// supports Atlas Search, the vector index used by semantic search.
func EnsureSchema(ctx context.Context, db *mongo.Database, vectorDimensions int) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	validators := map[string]bson.M{
		documentsCollection:  documentValidator(),
		categoriesCollection: categoryValidator(),
	}
	for name, validator := range validators {
		if have[name] {
			continue
		}
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}

	if _, err := db.Collection(documentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create document indexes: %w", err)
	}
	if _, err := db.Collection(auditCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	if _, err := db.Collection(categoriesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	}); err != nil {
		return fmt.Errorf("create category index: %w", err)
	}
	if _, err := db.Collection(chunksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create chunk index: %w", err)
	}

	if err := ensureVectorIndex(ctx, db.Collection(chunksCollection), vectorDimensions); err != nil {
		slog.Warn("vector_index_unavailable", "collection", chunksCollection, "error", err)
	}
	return nil
}

func ensureVectorIndex(ctx context.Context, coll *mongo.Collection, dims int) error {
	if dims <= 0 {
		return errors.New("vector dimensions must be positive")
	}
	cursor, err := coll.SearchIndexes().List(ctx, options.SearchIndexes().SetName(vectorIndexName))
	if err != nil {
		return fmt.Errorf("list search indexes: %w", err)
	}
	defer cursor.Close(ctx)
	if cursor.Next(ctx) {
		return nil
	}

	model := mongo.SearchIndexModel{
		Definition: bson.D{{Key: "fields", Value: bson.A{
			bson.D{
				{Key: "type", Value: "vector"},
				{Key: "path", Value: "embedding"},
				{Key: "numDimensions", Value: dims},
				{Key: "similarity", Value: "cosine"},
			},
			bson.D{{Key: "type", Value: "filter"}, {Key: "path", Value: "document_id"}},
			bson.D{{Key: "type", Value: "filter"}, {Key: "path", Value: "category_id"}},
		}}},
		Options: options.SearchIndexes().SetName(vectorIndexName).SetType("vectorSearch"),
	}
	if _, err := coll.SearchIndexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

func documentValidator() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "filename", "content_type", "file_id", "status", "kv_data", "created_at", "updated_at"},
		"properties": bson.M{
			"filename":     bson.M{"bsonType": "string", "minLength": 1},
			"content_type": bson.M{"bsonType": "string", "minLength": 1},
			"file_id":      bson.M{"bsonType": "string", "minLength": 1},
			"status": bson.M{"enum": bson.A{
				"Queued", "Uploaded", "Pending", "Processed", "Unknown", "Archived",
			}},
			"category_id": bson.M{"bsonType": bson.A{"string", "null"}},
			"kv_data": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": bson.A{"key", "value"},
					"properties": bson.M{
						"key":   bson.M{"bsonType": "string", "minLength": 1},
						"value": bson.M{"bsonType": "string"},
					},
				},
			},
			"text":         bson.M{"bsonType": bson.A{"string", "null"}},
			"embedding":    bson.M{"bsonType": bson.A{"array", "null"}},
			"created_at":   bson.M{"bsonType": "date"},
			"processed_at": bson.M{"bsonType": bson.A{"date", "null"}},
			"archived_at":  bson.M{"bsonType": bson.A{"date", "null"}},
			"updated_at":   bson.M{"bsonType": "date"},
			"version":      bson.M{"bsonType": "long"},
		},
	}}
}

func categoryValidator() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "name", "description", "created_at"},
		"properties": bson.M{
			"name":        bson.M{"bsonType": "string", "minLength": 1},
			"description": bson.M{"bsonType": "string", "minLength": 1},
			"created_at":  bson.M{"bsonType": "date"},
		},
	}}
}
