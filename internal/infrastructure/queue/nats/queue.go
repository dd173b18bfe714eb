package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/infrastructure/resilience"
)

const workerQueueGroup = "workers"

// Queue carries document ingest events and classification feedback over one connection.
type Queue struct {
	conn            *nats.Conn
	subject         string
	feedbackSubject string
	executor        *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	FeedbackSubject      string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	feedbackSubject := strings.TrimSpace(options.FeedbackSubject)
	if feedbackSubject == "" {
		feedbackSubject = "documents.feedback"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("intellidocs"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		subject:         subject,
		feedbackSubject: feedbackSubject,
		executor:        options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	return q.publish(ctx, "nats.publish", q.subject, []byte(documentID))
}

// feedbackMessage is the payload consumed by the classifier fine-tuning pipeline.
type feedbackMessage struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	CategoryID  string `json:"category_id"`
	Category    string `json:"category"`
	Explanation string `json:"explanation"`
}

func (q *Queue) PublishCategoryFeedback(ctx context.Context, fb domain.CategoryFeedback) error {
	payload, err := json.Marshal(feedbackMessage{
		DocumentID:  fb.DocumentID,
		Filename:    fb.Filename,
		Text:        fb.Text,
		CategoryID:  fb.CategoryID,
		Category:    fb.Category,
		Explanation: fb.Explanation,
	})
	if err != nil {
		return fmt.Errorf("marshal category feedback: %w", err)
	}
	return q.publish(ctx, "nats.feedback", q.feedbackSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, data []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	err := q.executor.Execute(ctx, operation, call, classifyNATSError)
	return resilience.Temporary("nats publish", err, classifyNATSError)
}

func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		documentID := strings.TrimSpace(string(msg.Data))
		if documentID == "" {
			slog.Warn("worker_empty_message", "subject", msg.Subject)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, documentID); err != nil {
			slog.Error("worker_handler_error", "document_id", documentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
