package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// VectorStore keeps chunk embeddings next to the documents and queries them with Atlas
// $vectorSearch. Used when VECTOR_BACKEND=atlas.
type VectorStore struct {
	coll          *mongo.Collection
	numCandidates int
}

func NewVectorStore(db *mongo.Database) *VectorStore {
	return &VectorStore{coll: db.Collection(chunksCollection), numCandidates: 100}
}

type chunkRecord struct {
	ID         string    `bson:"_id"`
	DocumentID string    `bson:"document_id"`
	CategoryID string    `bson:"category_id"`
	Filename   string    `bson:"filename"`
	ChunkIndex int       `bson:"chunk_index"`
	Text       string    `bson:"text"`
	Embedding  []float32 `bson:"embedding"`
}

func (s *VectorStore) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "atlas index chunks", errors.New("chunks/vectors mismatch"))
	}
	if len(chunks) == 0 {
		return nil
	}
	records := make([]any, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, chunkRecord{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			CategoryID: doc.CategoryID,
			Filename:   doc.Filename,
			ChunkIndex: i,
			Text:       chunk,
			Embedding:  vectors[i],
		})
	}
	if _, err := s.coll.InsertMany(ctx, records); err != nil {
		return domain.WrapError(domain.ErrTemporary, "atlas index chunks", err)
	}
	return nil
}

func (s *VectorStore) Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = domain.DefaultSearchTop
	}
	cursor, err := s.coll.Aggregate(ctx, vectorSearchPipeline(queryVector, limit, max(s.numCandidates, limit*10), filter))
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "atlas vector search", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.RetrievedChunk, 0, limit)
	for cursor.Next(ctx) {
		var row struct {
			DocumentID string  `bson:"document_id"`
			CategoryID string  `bson:"category_id"`
			Filename   string  `bson:"filename"`
			Text       string  `bson:"text"`
			Score      float64 `bson:"score"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode vector hit: %w", err)
		}
		out = append(out, domain.RetrievedChunk{
			DocumentID: row.DocumentID,
			CategoryID: row.CategoryID,
			Filename:   row.Filename,
			Text:       row.Text,
			Score:      row.Score,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	return out, nil
}

func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

func vectorSearchPipeline(queryVector []float32, limit, candidates int, filter domain.SearchFilter) mongo.Pipeline {
	search := bson.D{
		{Key: "index", Value: vectorIndexName},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: queryVector},
		{Key: "numCandidates", Value: candidates},
		{Key: "limit", Value: limit},
	}
	conds := bson.A{}
	if filter.DocumentID != "" {
		conds = append(conds, bson.D{{Key: "document_id", Value: bson.D{{Key: "$eq", Value: filter.DocumentID}}}})
	}
	if filter.CategoryID != "" {
		conds = append(conds, bson.D{{Key: "category_id", Value: bson.D{{Key: "$eq", Value: filter.CategoryID}}}})
	}
	switch len(conds) {
	case 0:
	case 1:
		search = append(search, bson.E{Key: "filter", Value: conds[0]})
	default:
		search = append(search, bson.E{Key: "filter", Value: bson.D{{Key: "$and", Value: conds}}})
	}

	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "document_id", Value: 1},
			{Key: "category_id", Value: 1},
			{Key: "filename", Value: 1},
			{Key: "text", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}
