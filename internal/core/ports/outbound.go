package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveProcessingResult(ctx context.Context, id string, result domain.ProcessingResult) error
	UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) error
	UpdateCategory(ctx context.Context, id, categoryID string, status domain.DocumentStatus) error
	Archive(ctx context.Context, id string, at time.Time) error
	CountActiveByCategory(ctx context.Context, categoryID string) (int, error)
}

// CategoryRepository persists the category registry.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// FeedbackPublisher delivers manual category corrections to the classification model.
type FeedbackPublisher interface {
	PublishCategoryFeedback(ctx context.Context, feedback domain.CategoryFeedback) error
}

// AuditLog keeps the trail of manual document changes.
type AuditLog interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.AuditEntry, error)
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Analyzer extracts key-value pairs and proposes a category for extracted text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, categories []domain.Category) (domain.Analysis, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorStore indexes chunks and performs semantic search.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// ChatAnswerer produces an answer grounded in one document.
type ChatAnswerer interface {
	Answer(ctx context.Context, question string, scope domain.ChatScope) (string, error)
}
