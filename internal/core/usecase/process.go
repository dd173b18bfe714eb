package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

// writeBackTimeout bounds status writes made after the caller's context is gone.
const writeBackTimeout = 10 * time.Second

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	categories ports.CategoryRepository
	extractor  ports.TextExtractor
	analyzer   ports.Analyzer
	chunker    ports.Chunker
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	inflight   singleflight.Group
	now        func() time.Time
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	categories ports.CategoryRepository,
	extractor ports.TextExtractor,
	analyzer ports.Analyzer,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		categories: categories,
		extractor:  extractor,
		analyzer:   analyzer,
		chunker:    chunker,
		embedder:   embedder,
		vectorDB:   vectorDB,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ProcessByID runs the pipeline once per document at a time; concurrent callers for the
// same id share the result of the run already in flight. The shared run keeps the first
// caller's deadline but not its cancellation, and the outcome is always written back.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) (*domain.Document, error) {
	v, err, _ := uc.inflight.Do(documentID, func() (any, error) {
		runCtx, cancel := detach(ctx)
		defer cancel()
		return uc.process(runCtx, documentID)
	})
	if err != nil {
		return nil, err
	}
	shared := v.(*domain.Document)
	out := *shared
	return &out, nil
}

func (uc *ProcessDocumentUseCase) process(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.Status == domain.StatusProcessed:
		return doc, nil
	case doc.IsArchived():
		return nil, domain.WrapError(domain.ErrConflict, "process document", errors.New("document is archived"))
	case !doc.Status.Processable():
		return nil, domain.WrapError(domain.ErrConflict, "process document", fmt.Errorf("cannot process from status %s", doc.Status))
	}

	markCtx, cancelMark := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancelMark()
	if err := uc.repo.UpdateStatus(markCtx, documentID, domain.StatusPending, ""); err != nil {
		return nil, fmt.Errorf("set status=pending: %w", err)
	}

	result := uc.runPipeline(ctx, doc)
	if result.Status == domain.StatusUnknown && ctx.Err() != nil {
		slog.Warn("process_context_done", "document_id", documentID, "error", ctx.Err())
	}

	// The pipeline may have outlived ctx; the result still has to land.
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancelWrite()
	if err := uc.repo.SaveProcessingResult(writeCtx, documentID, result); err != nil {
		return nil, fmt.Errorf("save processing result: %w", err)
	}

	return uc.loadDocument(writeCtx, documentID)
}

// detach drops ctx's cancellation and keeps its deadline and values.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	out := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(out, deadline)
	}
	return context.WithCancel(out)
}

// runPipeline never fails: every external failure is folded into an Unknown result.
func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, doc *domain.Document) domain.ProcessingResult {
	result := domain.ProcessingResult{
		Status:     domain.StatusUnknown,
		CategoryID: doc.CategoryID,
		KeyValues:  doc.KeyValues,
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Text = text

	categories, err := uc.categories.List(ctx)
	if err != nil {
		result.Error = fmt.Errorf("list categories: %w", err).Error()
		return result
	}

	analysis, err := uc.analyzer.Analyze(ctx, text, categories)
	if err != nil {
		result.Error = fmt.Errorf("analyze document: %w", err).Error()
		return result
	}
	result.KeyValues = domain.NormalizeKeyValues(analysis.KeyValues)
	if matched := matchCategory(analysis.Category, categories); matched != "" {
		result.CategoryID = matched
	}

	indexed := *doc
	indexed.CategoryID = result.CategoryID
	embedding, err := uc.indexText(ctx, &indexed, text)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Embedding = embedding

	if strings.TrimSpace(result.CategoryID) == "" {
		result.Error = "no matching category"
		return result
	}

	result.Status = domain.StatusProcessed
	result.ProcessedAt = doc.ProcessedAt
	if result.ProcessedAt == nil {
		now := uc.now()
		result.ProcessedAt = &now
	}
	return result
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) indexText(ctx context.Context, doc *domain.Document, text string) ([]float32, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.DeleteDocument(ctx, doc.ID); err != nil {
		slog.Warn("vector_cleanup_failed", "document_id", doc.ID, "error", err)
	}
	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return nil, fmt.Errorf("index chunks in vector db: %w", err)
	}
	return centroid(vectors), nil
}

func matchCategory(name string, categories []domain.Category) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c.ID
		}
	}
	return ""
}

func centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	n := 0
	for _, v := range vectors {
		if len(v) != len(out) {
			continue
		}
		for i := range v {
			out[i] += v[i]
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range out {
		out[i] /= float32(n)
	}
	return out
}
