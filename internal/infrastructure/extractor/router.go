// Package extractor turns stored uploads into plain text, choosing a decoder by content
// type and falling back to the file extension.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
	"github.com/kirillkom/intellidocs/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/intellidocs/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/intellidocs/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/intellidocs/internal/infrastructure/extractor/wordml"
)

const defaultMaxBytes = 32 << 20

type Decoder interface {
	Decode(ctx context.Context, raw []byte) (string, error)
}

type Router struct {
	storage  ports.ObjectStorage
	maxBytes int64
	byType   map[string]Decoder
	byExt    map[string]Decoder
}

func NewRouter(storage ports.ObjectStorage, maxBytes int64) *Router {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	text := plaintext.Decoder{}
	pdfDec := pdf.Decoder{}
	xlsx := spreadsheet.Decoder{}
	docx := wordml.Decoder{MaxBytes: maxBytes}
	return &Router{
		storage:  storage,
		maxBytes: maxBytes,
		byType: map[string]Decoder{
			"text/plain":      text,
			"text/markdown":   text,
			"text/x-markdown": text,
			"application/pdf": pdfDec,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       xlsx,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": docx,
		},
		byExt: map[string]Decoder{
			".txt":  text,
			".md":   text,
			".pdf":  pdfDec,
			".xlsx": xlsx,
			".docx": docx,
		},
	}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	decoder, err := r.decoderFor(doc)
	if err != nil {
		return "", err
	}

	reader, err := r.storage.Open(ctx, doc.FileID)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if int64(len(raw)) > r.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s exceeds %d bytes", doc.Filename, r.maxBytes))
	}
	return decoder.Decode(ctx, raw)
}

func (r *Router) decoderFor(doc *domain.Document) (Decoder, error) {
	contentType := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if d, ok := r.byType[contentType]; ok {
		return d, nil
	}
	if d, ok := r.byExt[strings.ToLower(filepath.Ext(doc.Filename))]; ok {
		return d, nil
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported content type %q", doc.ContentType))
}
