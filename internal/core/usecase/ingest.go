package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

var allowedExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".pdf":  {},
	".docx": {},
	".xlsx": {},
}

type IngestDocumentUseCase struct {
	repo        ports.DocumentRepository
	categories  ports.CategoryRepository
	storage     ports.ObjectStorage
	queue       ports.MessageQueue
	autoProcess bool
	now         func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	categories ports.CategoryRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	autoProcess bool,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:        repo,
		categories:  categories,
		storage:     storage,
		queue:       queue,
		autoProcess: autoProcess,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	req domain.UploadRequest,
	body io.Reader,
) (*domain.Document, error) {
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file is required"))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unsupported file type %q", ext))
	}

	category, err := uc.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload body", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file is empty"))
	}

	fileID := ContentAddress(data)
	if err := uc.storage.Save(ctx, fileID, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now := uc.now()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: resolveContentType(req.ContentType, ext, data),
		FileID:      fileID,
		Status:      domain.StatusUploaded,
		CategoryID:  category.ID,
		KeyValues:   []domain.KeyValue{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if uc.autoProcess && uc.queue != nil {
		if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
			slog.Warn("publish_ingest_event_failed", "document_id", doc.ID, "error", err)
		}
	}

	return doc, nil
}

func (uc *IngestDocumentUseCase) resolveCategory(ctx context.Context, ref string) (*domain.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("category is required"))
	}
	category, err := uc.categories.GetByID(ctx, ref)
	if err == nil {
		return category, nil
	}
	if !domain.IsKind(err, domain.ErrCategoryNotFound) {
		return nil, fmt.Errorf("lookup category: %w", err)
	}
	category, err = uc.categories.GetByName(ctx, ref)
	if err == nil {
		return category, nil
	}
	if domain.IsKind(err, domain.ErrCategoryNotFound) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unknown category %q", ref))
	}
	return nil, fmt.Errorf("lookup category: %w", err)
}

// ContentAddress returns the blob key for data: "sha256/<hex digest>".
func ContentAddress(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256/" + hex.EncodeToString(sum[:])
}

func resolveContentType(declared, ext string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	switch ext {
	case ".md":
		return "text/markdown"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return http.DetectContentType(data)
}
