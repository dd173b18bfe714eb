package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/core/domain"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeIngestor struct {
	lastReq  domain.UploadRequest
	lastBody string
	err      error
}

func (f *fakeIngestor) Upload(_ context.Context, req domain.UploadRequest, body io.Reader) (*domain.Document, error) {
	f.lastReq = req
	raw, _ := io.ReadAll(body)
	f.lastBody = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{
		ID:          "doc-new",
		Filename:    req.Filename,
		ContentType: req.ContentType,
		FileID:      "sha256/abc",
		Status:      domain.StatusUploaded,
		CategoryID:  req.CategoryID,
		KeyValues:   []domain.KeyValue{},
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}, nil
}

type fakeProcessor struct {
	calls []string
	err   error
}

func (f *fakeProcessor) ProcessByID(_ context.Context, id string) (*domain.Document, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	doc := sampleDoc(id)
	doc.Status = domain.StatusProcessed
	doc.Text = "hello"
	return &doc, nil
}

type fakeDocuments struct {
	mu         sync.Mutex
	docs       map[string]domain.Document
	lastFilter domain.DocumentFilter
	lastKVs    []domain.KeyValue
	lastSearch struct {
		query string
		mode  domain.SearchMode
		limit int
	}
	recategorized []string
	content       string
	history       []domain.AuditEntry
}

func newFakeDocuments(docs ...domain.Document) *fakeDocuments {
	f := &fakeDocuments{docs: map[string]domain.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocuments) get(id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return &doc, nil
}

func (f *fakeDocuments) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		if filter.CategoryID != "" && d.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocuments) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeDocuments) UpdateKeyValues(_ context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, domain.WrapError(domain.ErrConflict, "update key values", errors.New("document is archived"))
	}
	f.lastKVs = kvs
	doc.KeyValues = domain.NormalizeKeyValues(kvs)
	f.docs[id] = *doc
	return doc, nil
}

func (f *fakeDocuments) Recategorize(_ context.Context, id, categoryID, _ string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if categoryID != "cat-inv" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recategorize", errors.New("unknown category"))
	}
	f.recategorized = append(f.recategorized, id)
	doc.CategoryID = categoryID
	doc.Status = domain.StatusProcessed
	return doc, nil
}

func (f *fakeDocuments) Archive(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(id)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.StatusArchived
	f.docs[id] = *doc
	f.history = append(f.history, domain.AuditEntry{
		ID: "audit-" + id, Action: domain.AuditArchive, DocumentID: id, At: doc.UpdatedAt,
	})
	return doc, nil
}

func (f *fakeDocuments) History(_ context.Context, id string) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(id); err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntry, 0)
	for _, e := range f.history {
		if e.DocumentID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeDocuments) Reprocess(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusProcessed {
		return nil, domain.WrapError(domain.ErrConflict, "reprocess", errors.New("already processed"))
	}
	doc.Status = domain.StatusQueued
	return doc, nil
}

func (f *fakeDocuments) Search(_ context.Context, query string, mode domain.SearchMode, limit int) ([]domain.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSearch.query = query
	f.lastSearch.mode = mode
	f.lastSearch.limit = limit
	var hits []domain.SearchHit
	for _, d := range f.docs {
		if strings.Contains(strings.ToLower(d.Filename), strings.ToLower(query)) {
			hits = append(hits, domain.SearchHit{Document: d})
		}
	}
	return hits, nil
}

func (f *fakeDocuments) OpenContent(_ context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(id)
	if err != nil {
		return nil, nil, err
	}
	return doc, io.NopCloser(strings.NewReader(f.content)), nil
}

type fakeCategories struct {
	items   []domain.Category
	deleted []string
}

func (f *fakeCategories) List(context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), f.items...), nil
}

func (f *fakeCategories) Add(_ context.Context, name, description string) (*domain.Category, error) {
	for _, c := range f.items {
		if strings.EqualFold(c.Name, name) {
			return nil, domain.WrapError(domain.ErrConflict, "add category", errors.New(name))
		}
	}
	c := domain.Category{ID: "cat-" + strings.ToLower(name), Name: name, Description: description, CreatedAt: fixedTime}
	f.items = append(f.items, c)
	return &c, nil
}

func (f *fakeCategories) DeleteByName(_ context.Context, name string) error {
	for i, c := range f.items {
		if strings.EqualFold(c.Name, name) {
			if c.DocumentCount > 0 {
				return domain.WrapError(domain.ErrConflict, "delete category", errors.New("still referenced"))
			}
			f.items = append(f.items[:i], f.items[i+1:]...)
			f.deleted = append(f.deleted, name)
			return nil
		}
	}
	return domain.WrapError(domain.ErrCategoryNotFound, "delete category", errors.New(name))
}

type fakeChat struct {
	last   domain.ChatQuestion
	answer string
	err    error
}

func (f *fakeChat) Ask(_ context.Context, q domain.ChatQuestion) (*domain.ChatAnswer, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatAnswer{Answer: f.answer}, nil
}

type fakeStats struct {
	stats domain.DashboardStats
}

func (f *fakeStats) Stats(context.Context) (*domain.DashboardStats, error) {
	out := f.stats
	return &out, nil
}

func sampleDoc(id string) domain.Document {
	return domain.Document{
		ID:          id,
		Filename:    id + ".pdf",
		ContentType: "application/pdf",
		FileID:      "sha256/" + id,
		Status:      domain.StatusUploaded,
		CategoryID:  "cat-inv",
		KeyValues:   []domain.KeyValue{},
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}
}

type testServices struct {
	ingestor   *fakeIngestor
	processor  *fakeProcessor
	documents  *fakeDocuments
	categories *fakeCategories
	chat       *fakeChat
	stats      *fakeStats
}

func newTestServices() *testServices {
	return &testServices{
		ingestor:  &fakeIngestor{},
		processor: &fakeProcessor{},
		documents: newFakeDocuments(sampleDoc("doc-1")),
		categories: &fakeCategories{items: []domain.Category{
			{ID: "cat-inv", Name: "Invoices", Description: "Bills", DocumentCount: 1, CreatedAt: fixedTime},
		}},
		chat:  &fakeChat{answer: "42"},
		stats: &fakeStats{},
	}
}

func (s *testServices) services() Services {
	return Services{
		Ingestor:   s.ingestor,
		Processor:  s.processor,
		Documents:  s.documents,
		Categories: s.categories,
		Chat:       s.chat,
		Stats:      s.stats,
	}
}

func newTestHandler(t *testing.T, cfg config.Config, svc *testServices, opts ...Option) http.Handler {
	t.Helper()
	rt, err := NewRouter(cfg, svc.services(), opts...)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return rt.Handler()
}
