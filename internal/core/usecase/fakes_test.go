package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type docRepoFake struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	statusCalls []domain.DocumentStatus
	saveErr     error
	getCalls    int
}

func newDocRepoFake(docs ...domain.Document) *docRepoFake {
	f := &docRepoFake{docs: map[string]*domain.Document{}}
	for i := range docs {
		d := docs[i]
		f.docs[d.ID] = &d
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := doc.Validate(); err != nil {
		return err
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		if filter.CategoryID != "" && doc.CategoryID != filter.CategoryID {
			continue
		}
		if filter.NameQuery != "" && !strings.Contains(strings.ToLower(doc.Filename), strings.ToLower(filter.NameQuery)) {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	doc.Error = errMessage
	return nil
}

func (f *docRepoFake) SaveProcessingResult(_ context.Context, id string, result domain.ProcessingResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	next := *doc
	next.Status = result.Status
	next.CategoryID = result.CategoryID
	next.Text = result.Text
	next.KeyValues = result.KeyValues
	next.Embedding = result.Embedding
	next.Error = result.Error
	if next.ProcessedAt == nil {
		next.ProcessedAt = result.ProcessedAt
	}
	if err := next.Validate(); err != nil {
		return err
	}
	f.statusCalls = append(f.statusCalls, result.Status)
	f.docs[id] = &next
	return nil
}

func (f *docRepoFake) UpdateKeyValues(_ context.Context, id string, kvs []domain.KeyValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.KeyValues = kvs
	return nil
}

func (f *docRepoFake) UpdateCategory(_ context.Context, id, categoryID string, status domain.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.CategoryID = categoryID
	doc.Status = status
	if status == domain.StatusProcessed && doc.ProcessedAt == nil {
		now := time.Now().UTC()
		doc.ProcessedAt = &now
	}
	return nil
}

func (f *docRepoFake) Archive(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = domain.StatusArchived
	doc.ArchivedAt = &at
	return nil
}

func (f *docRepoFake) CountActiveByCategory(_ context.Context, categoryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, doc := range f.docs {
		if doc.CategoryID == categoryID && !doc.IsArchived() {
			n++
		}
	}
	return n, nil
}

type categoryRepoFake struct {
	mu      sync.Mutex
	items   []domain.Category
	listErr error
}

func newCategoryRepoFake(items ...domain.Category) *categoryRepoFake {
	return &categoryRepoFake{items: items}
}

func (f *categoryRepoFake) Create(_ context.Context, c *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *c)
	return nil
}

func (f *categoryRepoFake) List(context.Context) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Category(nil), f.items...), nil
}

func (f *categoryRepoFake) GetByID(_ context.Context, id string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrCategoryNotFound, "get category", errors.New(id))
}

func (f *categoryRepoFake) GetByName(_ context.Context, name string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if strings.EqualFold(c.Name, name) {
			out := c
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrCategoryNotFound, "get category", errors.New(name))
}

func (f *categoryRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrCategoryNotFound
}

type storageFake struct {
	saved map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.saved[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type feedbackFake struct {
	sent []domain.CategoryFeedback
	err  error
}

func (f *feedbackFake) PublishCategoryFeedback(_ context.Context, fb domain.CategoryFeedback) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, fb)
	return nil
}

type auditFake struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (f *auditFake) Record(_ context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *auditFake) ListByDocument(_ context.Context, documentID string) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, e := range f.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type analyzerFake struct {
	analysis domain.Analysis
	err      error
	release  chan struct{}
	mu       sync.Mutex
	calls    int
	seen     []domain.Category
}

func (f *analyzerFake) Analyze(_ context.Context, _ string, categories []domain.Category) (domain.Analysis, error) {
	f.mu.Lock()
	f.calls++
	f.seen = categories
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	return f.analysis, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	query   []float32
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.query, nil
}

type vectorFake struct {
	indexErr     error
	indexed      map[string]int
	deleted      []string
	hits         []domain.RetrievedChunk
	searchFilter domain.SearchFilter
}

func (f *vectorFake) IndexChunks(_ context.Context, doc *domain.Document, chunks []string, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if f.indexed == nil {
		f.indexed = map[string]int{}
	}
	f.indexed[doc.ID] = len(chunks)
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ []float32, _ int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	f.searchFilter = filter
	return f.hits, nil
}

func (f *vectorFake) DeleteDocument(_ context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type answererFake struct {
	answer   string
	err      error
	question string
	scope    domain.ChatScope
}

func (f *answererFake) Answer(_ context.Context, question string, scope domain.ChatScope) (string, error) {
	f.question = question
	f.scope = scope
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

var (
	testCreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	invoices      = domain.Category{ID: "cat-inv", Name: "Invoices", Description: "Bills with totals", CreatedAt: testCreatedAt}
	receipts      = domain.Category{ID: "cat-rec", Name: "Receipts", Description: "Proof of payment", CreatedAt: testCreatedAt}
)

func uploadedDoc(id, categoryID string) domain.Document {
	return domain.Document{
		ID:          id,
		Filename:    id + ".pdf",
		ContentType: "application/pdf",
		FileID:      "sha256/" + id,
		Status:      domain.StatusUploaded,
		CategoryID:  categoryID,
		KeyValues:   []domain.KeyValue{},
		CreatedAt:   testCreatedAt,
		UpdatedAt:   testCreatedAt,
	}
}
