package ports

import (
	"context"
	"io"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req domain.UploadRequest, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor runs extraction and classification for one document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.Document, error)
}

// DocumentService is the inbound contract for reading and editing documents.
type DocumentService interface {
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error)
	Recategorize(ctx context.Context, id, categoryID, explanation string) (*domain.Document, error)
	Archive(ctx context.Context, id string) (*domain.Document, error)
	Reprocess(ctx context.Context, id string) (*domain.Document, error)
	Search(ctx context.Context, query string, mode domain.SearchMode, limit int) ([]domain.SearchHit, error)
	OpenContent(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error)
	History(ctx context.Context, id string) ([]domain.AuditEntry, error)
}

// CategoryRegistry manages the set of categories documents are classified into.
type CategoryRegistry interface {
	List(ctx context.Context) ([]domain.Category, error)
	Add(ctx context.Context, name, description string) (*domain.Category, error)
	DeleteByName(ctx context.Context, name string) error
}

// ChatRelay answers questions about a single document.
type ChatRelay interface {
	Ask(ctx context.Context, question domain.ChatQuestion) (*domain.ChatAnswer, error)
}

type StatsReader interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}
