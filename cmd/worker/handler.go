package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type documentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.Document, error)
}

type documentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

type processMetrics interface {
	StartDocument()
	FinishDocument(service string, duration time.Duration, status string)
	ObserveQueueLag(service string, lag time.Duration)
}

// ingestHandler processes one ingest event under its own deadline.
type ingestHandler struct {
	processor documentProcessor
	documents documentReader
	metrics   processMetrics
	timeout   time.Duration
	now       func() time.Time
}

func (h *ingestHandler) handle(ctx context.Context, documentID string) error {
	if doc, err := h.documents.GetByID(ctx, documentID); err == nil {
		h.metrics.ObserveQueueLag(serviceName, h.now().Sub(doc.UpdatedAt))
	}

	processCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	started := h.now()
	h.metrics.StartDocument()
	doc, err := h.processor.ProcessByID(processCtx, documentID)
	status := ""
	if err == nil {
		status = string(doc.Status)
	}
	h.metrics.FinishDocument(serviceName, h.now().Sub(started), status)
	if err != nil {
		return err
	}

	slog.Info("document_processed",
		"document_id", documentID,
		"status", doc.Status,
		"category_id", doc.CategoryID,
	)
	return nil
}
