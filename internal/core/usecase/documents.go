package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

type DocumentsUseCase struct {
	repo       ports.DocumentRepository
	categories ports.CategoryRepository
	storage    ports.ObjectStorage
	queue      ports.MessageQueue
	feedback   ports.FeedbackPublisher
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	audit      ports.AuditLog
	now        func() time.Time
}

func NewDocumentsUseCase(
	repo ports.DocumentRepository,
	categories ports.CategoryRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	feedback ports.FeedbackPublisher,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	audit ports.AuditLog,
) *DocumentsUseCase {
	return &DocumentsUseCase{
		repo:       repo,
		categories: categories,
		storage:    storage,
		queue:      queue,
		feedback:   feedback,
		embedder:   embedder,
		vectorDB:   vectorDB,
		audit:      audit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DocumentsUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	docs, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = nil
	}
	return docs, nil
}

func (uc *DocumentsUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *DocumentsUseCase) UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error) {
	doc, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, domain.WrapError(domain.ErrConflict, "update key values", errors.New("document is archived"))
	}

	if err := uc.repo.UpdateKeyValues(ctx, id, domain.NormalizeKeyValues(kvs)); err != nil {
		return nil, fmt.Errorf("update key values: %w", err)
	}
	return uc.GetByID(ctx, id)
}

// Recategorize assigns a category chosen by a person and reports the correction to the
// classification model. An Unknown document with text becomes Processed; a failed
// feedback delivery leaves the document Unknown.
func (uc *DocumentsUseCase) Recategorize(ctx context.Context, id, categoryID, explanation string) (*domain.Document, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recategorize", errors.New("category_id is required"))
	}
	doc, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, domain.WrapError(domain.ErrConflict, "recategorize", errors.New("document is archived"))
	}
	category, err := uc.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("lookup category: %w", err)
	}

	status := doc.Status
	if status == domain.StatusUnknown && strings.TrimSpace(doc.Text) != "" {
		status = domain.StatusProcessed
	}
	if err := uc.repo.UpdateCategory(ctx, id, category.ID, status); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	detail := doc.CategoryID + " -> " + category.ID
	if e := strings.TrimSpace(explanation); e != "" {
		detail += ": " + e
	}
	uc.recordAudit(ctx, domain.AuditRecategorize, id, detail)

	if uc.feedback != nil {
		feedback := domain.CategoryFeedback{
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			Text:        doc.Text,
			CategoryID:  category.ID,
			Category:    category.Name,
			Explanation: strings.TrimSpace(explanation),
		}
		if err := uc.feedback.PublishCategoryFeedback(ctx, feedback); err != nil {
			slog.Warn("category_feedback_failed", "document_id", doc.ID, "error", err)
			msg := fmt.Sprintf("category feedback delivery failed: %v", err)
			if statusErr := uc.repo.UpdateStatus(ctx, id, domain.StatusUnknown, msg); statusErr != nil {
				return nil, fmt.Errorf("set status=unknown: %w", statusErr)
			}
		}
	}

	return uc.GetByID(ctx, id)
}

func (uc *DocumentsUseCase) Archive(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return doc, nil
	}
	if err := uc.repo.Archive(ctx, id, uc.now()); err != nil {
		return nil, fmt.Errorf("archive document: %w", err)
	}
	uc.recordAudit(ctx, domain.AuditArchive, id, "")
	if uc.vectorDB != nil {
		if err := uc.vectorDB.DeleteDocument(ctx, id); err != nil {
			slog.Warn("vector_cleanup_failed", "document_id", id, "error", err)
		}
	}
	return uc.GetByID(ctx, id)
}

// History lists the manual changes made to a document, oldest first.
func (uc *DocumentsUseCase) History(ctx context.Context, id string) ([]domain.AuditEntry, error) {
	if _, err := uc.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if uc.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	entries, err := uc.audit.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// recordAudit never fails the change it describes; the change is already stored.
func (uc *DocumentsUseCase) recordAudit(ctx context.Context, action domain.AuditAction, documentID, detail string) {
	if uc.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		DocumentID: documentID,
		Detail:     detail,
		At:         uc.now(),
	}
	if err := uc.audit.Record(ctx, entry); err != nil {
		slog.Error("audit_record_failed", "document_id", documentID, "action", string(action), "error", err)
	}
}

// Reprocess queues a document for the background worker.
func (uc *DocumentsUseCase) Reprocess(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch doc.Status {
	case domain.StatusQueued:
		return doc, nil
	case domain.StatusUnknown, domain.StatusUploaded, domain.StatusPending:
	default:
		return nil, domain.WrapError(domain.ErrConflict, "reprocess", fmt.Errorf("cannot reprocess from status %s", doc.Status))
	}
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "reprocess", errors.New("ingest queue is not configured"))
	}

	if err := uc.repo.UpdateStatus(ctx, id, domain.StatusQueued, ""); err != nil {
		return nil, fmt.Errorf("set status=queued: %w", err)
	}
	if err := uc.queue.PublishDocumentIngested(ctx, id); err != nil {
		if revertErr := uc.repo.UpdateStatus(ctx, id, doc.Status, doc.Error); revertErr != nil {
			slog.Error("reprocess_revert_failed", "document_id", id, "error", revertErr)
		}
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return uc.GetByID(ctx, id)
}

func (uc *DocumentsUseCase) Search(ctx context.Context, query string, mode domain.SearchMode, limit int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search documents", errors.New("query is required"))
	}
	if limit <= 0 {
		limit = domain.DefaultSearchTop
	}

	switch mode {
	case "", domain.SearchByName:
		return uc.searchByName(ctx, query, limit)
	case domain.SearchByMeaning:
		return uc.searchByMeaning(ctx, query, limit)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "search documents", fmt.Errorf("unsupported mode %q", mode))
	}
}

func (uc *DocumentsUseCase) searchByName(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	docs, err := uc.List(ctx, domain.DocumentFilter{NameQuery: query})
	if err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, min(limit, len(docs)))
	for _, doc := range docs {
		if doc.IsArchived() {
			continue
		}
		hits = append(hits, domain.SearchHit{Document: doc})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (uc *DocumentsUseCase) searchByMeaning(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	if uc.embedder == nil || uc.vectorDB == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "semantic search", errors.New("vector search is not configured"))
	}
	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	chunks, err := uc.vectorDB.Search(ctx, vector, limit*3, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}

	best := make(map[string]float64, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		score, seen := best[chunk.DocumentID]
		if !seen {
			order = append(order, chunk.DocumentID)
		}
		if !seen || chunk.Score > score {
			best[chunk.DocumentID] = chunk.Score
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return best[order[i]] > best[order[j]] })

	hits := make([]domain.SearchHit, 0, limit)
	for _, id := range order {
		doc, err := uc.repo.GetByID(ctx, id)
		if err != nil {
			if domain.IsKind(err, domain.ErrDocumentNotFound) {
				continue
			}
			return nil, fmt.Errorf("fetch document by id: %w", err)
		}
		if doc.IsArchived() {
			continue
		}
		doc.Embedding = nil
		hits = append(hits, domain.SearchHit{Document: *doc, Score: best[id]})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (uc *DocumentsUseCase) OpenContent(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := uc.storage.Open(ctx, doc.FileID)
	if err != nil {
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return doc, body, nil
}
