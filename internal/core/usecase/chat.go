package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

const (
	defaultFullTextLimit = 6000
	defaultChatTopK      = 5
)

type ChatUseCase struct {
	repo          ports.DocumentRepository
	categories    ports.CategoryRepository
	embedder      ports.Embedder
	vectorDB      ports.VectorStore
	answerer      ports.ChatAnswerer
	fullTextLimit int
	topK          int
}

func NewChatUseCase(
	repo ports.DocumentRepository,
	categories ports.CategoryRepository,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	answerer ports.ChatAnswerer,
	fullTextLimit int,
	topK int,
) *ChatUseCase {
	if fullTextLimit <= 0 {
		fullTextLimit = defaultFullTextLimit
	}
	if topK <= 0 {
		topK = defaultChatTopK
	}
	return &ChatUseCase{
		repo:          repo,
		categories:    categories,
		embedder:      embedder,
		vectorDB:      vectorDB,
		answerer:      answerer,
		fullTextLimit: fullTextLimit,
		topK:          topK,
	}
}

func (uc *ChatUseCase) Ask(ctx context.Context, q domain.ChatQuestion) (*domain.ChatAnswer, error) {
	q.DocumentID = strings.TrimSpace(q.DocumentID)
	q.Query = strings.TrimSpace(q.Query)
	switch {
	case !q.Mode.Valid():
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("unsupported mode %q", q.Mode))
	case q.DocumentID == "":
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("documentId is required"))
	case q.Query == "":
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("query is required"))
	}

	doc, err := uc.repo.GetByID(ctx, q.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	scope := domain.ChatScope{
		Mode:         q.Mode,
		DocumentName: doc.Filename,
		CategoryName: uc.categoryName(ctx, doc.CategoryID),
	}

	switch q.Mode {
	case domain.ChatKeyValue:
		scope.Fields = doc.KeyValues
	case domain.ChatGeneral:
		if strings.TrimSpace(doc.Text) == "" {
			return nil, domain.WrapError(domain.ErrConflict, "chat", errors.New("document has no extracted text yet"))
		}
		if len(doc.Text) <= uc.fullTextLimit {
			scope.Text = doc.Text
		} else {
			scope.Chunks, err = uc.relevantChunks(ctx, doc, q.Query)
			if err != nil {
				return nil, err
			}
		}
	}

	answer, err := uc.answerer.Answer(ctx, q.Query, scope)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &domain.ChatAnswer{Answer: answer}, nil
}

// relevantChunks narrows a long document to the chunks closest to the question,
// falling back to the head of the text when semantic search is unavailable.
func (uc *ChatUseCase) relevantChunks(ctx context.Context, doc *domain.Document, query string) ([]domain.RetrievedChunk, error) {
	head := []domain.RetrievedChunk{{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		CategoryID: doc.CategoryID,
		Text:       strings.ToValidUTF8(doc.Text[:uc.fullTextLimit], ""),
	}}
	if uc.embedder == nil || uc.vectorDB == nil {
		return head, nil
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	chunks, err := uc.vectorDB.Search(ctx, vector, uc.topK, domain.SearchFilter{DocumentID: doc.ID})
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	if len(chunks) == 0 {
		return head, nil
	}
	return chunks, nil
}

func (uc *ChatUseCase) categoryName(ctx context.Context, categoryID string) string {
	if strings.TrimSpace(categoryID) == "" || uc.categories == nil {
		return ""
	}
	category, err := uc.categories.GetByID(ctx, categoryID)
	if err != nil {
		slog.Debug("chat_category_lookup_failed", "category_id", categoryID, "error", err)
		return ""
	}
	return category.Name
}
