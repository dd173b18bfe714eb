package dashboard

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// FixtureSource serves a YAML fixture from memory for offline demos. Mutations only live
// as long as the process.
type FixtureSource struct {
	mu         sync.Mutex
	categories []domain.Category
	documents  []domain.Document
	now        func() time.Time
}

type fixtureFile struct {
	Categories []fixtureCategory `yaml:"categories"`
	Documents  []fixtureDocument `yaml:"documents"`
}

type fixtureCategory struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type fixtureDocument struct {
	ID          string            `yaml:"id"`
	Filename    string            `yaml:"filename"`
	ContentType string            `yaml:"content_type"`
	Status      string            `yaml:"status"`
	CategoryID  string            `yaml:"category_id"`
	Text        string            `yaml:"text"`
	KeyValues   []domain.KeyValue `yaml:"kv_data"`
	CreatedAt   time.Time         `yaml:"created_at"`
}

func LoadFixture(path string) (*FixtureSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboard fixture: %w", err)
	}
	return ParseFixture(raw)
}

func ParseFixture(raw []byte) (*FixtureSource, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse dashboard fixture: %w", err)
	}

	src := &FixtureSource{now: func() time.Time { return time.Now().UTC() }}
	created := src.now()
	for _, c := range file.Categories {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		src.categories = append(src.categories, domain.Category{ID: id, Name: c.Name, Description: c.Description, CreatedAt: created})
	}
	for i, d := range file.Documents {
		status := domain.DocumentStatus(d.Status)
		if status == "" {
			status = domain.StatusUploaded
		}
		if !status.Valid() {
			return nil, fmt.Errorf("dashboard fixture: document %d has unsupported status %q", i, d.Status)
		}
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = created
		}
		doc := domain.Document{
			ID:          id,
			Filename:    d.Filename,
			ContentType: d.ContentType,
			FileID:      "fixture/" + id,
			Status:      status,
			CategoryID:  d.CategoryID,
			Text:        d.Text,
			KeyValues:   domain.NormalizeKeyValues(d.KeyValues),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if status == domain.StatusProcessed {
			processed := createdAt
			doc.ProcessedAt = &processed
		}
		src.documents = append(src.documents, doc)
	}
	return src, nil
}

func fixtureError(code int, message string) error {
	return &StatusError{StatusCode: code, Status: fmt.Sprintf("%d %s", code, http.StatusText(code)), Message: message}
}

func (f *FixtureSource) ListCategories(context.Context) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Category, 0, len(f.categories))
	for _, c := range f.categories {
		c.DocumentCount = f.activeCountLocked(c.ID)
		out = append(out, c)
	}
	return out, nil
}

func (f *FixtureSource) AddCategory(_ context.Context, name, description string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.TrimSpace(name)
	if _, ok := f.categoryLocked(name); ok {
		return nil, fixtureError(http.StatusConflict, fmt.Sprintf("category %q already exists", name))
	}
	c := domain.Category{ID: uuid.NewString(), Name: name, Description: strings.TrimSpace(description), CreatedAt: f.now()}
	f.categories = append(f.categories, c)
	return &c, nil
}

func (f *FixtureSource) DeleteCategory(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if f.activeCountLocked(c.ID) > 0 {
			return fixtureError(http.StatusConflict, "category is still referenced")
		}
		f.categories = append(f.categories[:i:i], f.categories[i+1:]...)
		return nil
	}
	return fixtureError(http.StatusNotFound, "category not found")
}

func (f *FixtureSource) ListDocuments(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Document(nil), f.documents...), nil
}

func (f *FixtureSource) Upload(_ context.Context, filename, category string, body io.Reader) (*domain.Document, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categoryLocked(category)
	if !ok {
		return nil, fixtureError(http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
	}
	now := f.now()
	doc := domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: "application/octet-stream",
		Status:      domain.StatusUploaded,
		CategoryID:  c.ID,
		KeyValues:   []domain.KeyValue{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.FileID = "fixture/" + doc.ID
	f.documents = append([]domain.Document{doc}, f.documents...)
	return &doc, nil
}

func (f *FixtureSource) UpdateKeyValues(_ context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error) {
	return f.mutate(id, func(doc *domain.Document) error {
		if doc.IsArchived() {
			return fixtureError(http.StatusConflict, "document is archived")
		}
		doc.KeyValues = domain.NormalizeKeyValues(kvs)
		return nil
	})
}

// Process marks the document processed under its current category, or Unknown without one.
func (f *FixtureSource) Process(_ context.Context, id string) (*domain.Document, error) {
	return f.mutate(id, func(doc *domain.Document) error {
		if !doc.Status.Processable() {
			return fixtureError(http.StatusConflict, fmt.Sprintf("cannot process from status %s", doc.Status))
		}
		if strings.TrimSpace(doc.Text) == "" {
			doc.Text = "Fixture text for " + doc.Filename
		}
		if doc.CategoryID == "" {
			doc.Status = domain.StatusUnknown
			return nil
		}
		doc.Status = domain.StatusProcessed
		now := f.now()
		doc.ProcessedAt = &now
		return nil
	})
}

func (f *FixtureSource) Archive(_ context.Context, id string) (*domain.Document, error) {
	return f.mutate(id, func(doc *domain.Document) error {
		if doc.IsArchived() {
			return nil
		}
		doc.Status = domain.StatusArchived
		now := f.now()
		doc.ArchivedAt = &now
		return nil
	})
}

func (f *FixtureSource) Recategorize(_ context.Context, id, categoryID, _ string) (*domain.Document, error) {
	return f.mutate(id, func(doc *domain.Document) error {
		c, ok := f.categoryLocked(categoryID)
		if !ok {
			return fixtureError(http.StatusBadRequest, fmt.Sprintf("unknown category %q", categoryID))
		}
		doc.CategoryID = c.ID
		doc.Status = domain.StatusProcessed
		if doc.ProcessedAt == nil {
			now := f.now()
			doc.ProcessedAt = &now
		}
		return nil
	})
}

func (f *FixtureSource) Chat(_ context.Context, mode domain.ChatMode, documentID, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexLocked(documentID)
	if idx < 0 {
		return "", fixtureError(http.StatusNotFound, "document not found")
	}
	if mode == domain.ChatKeyValue {
		return fmt.Sprintf("Mock response about %d fields of %s to: %s", len(f.documents[idx].KeyValues), f.documents[idx].Filename, query), nil
	}
	return "Mock response to: " + query, nil
}

func (f *FixtureSource) Stats(context.Context) (*domain.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &domain.DashboardStats{Pools: make([]domain.CategoryPool, 0, len(f.categories))}
	for _, doc := range f.documents {
		switch doc.Status {
		case domain.StatusArchived:
			stats.ArchivedCount++
			continue
		case domain.StatusProcessed:
			stats.ProcessedCount++
		case domain.StatusUnknown:
			stats.UnknownCount++
		default:
			stats.PendingCount++
		}
		stats.TotalDocuments++
	}
	stats.ProcessingAccuracy = percentOf(stats.ProcessedCount, stats.TotalDocuments)

	for _, c := range f.categories {
		pool := domain.CategoryPool{CategoryID: c.ID, Name: c.Name, Status: domain.PoolActive}
		for _, doc := range f.documents {
			if doc.CategoryID != c.ID || doc.IsArchived() {
				continue
			}
			pool.DocumentCount++
			switch doc.Status {
			case domain.StatusProcessed:
				pool.ProcessedCount++
			case domain.StatusQueued, domain.StatusPending:
				pool.Status = domain.PoolProcessing
			}
		}
		pool.Accuracy = percentOf(pool.ProcessedCount, pool.DocumentCount)
		stats.Pools = append(stats.Pools, pool)
	}
	return stats, nil
}

func (f *FixtureSource) mutate(id string, fn func(*domain.Document) error) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexLocked(id)
	if idx < 0 {
		return nil, fixtureError(http.StatusNotFound, "document not found")
	}
	next := f.documents[idx]
	next.KeyValues = append([]domain.KeyValue(nil), next.KeyValues...)
	wasArchived := next.IsArchived()
	if err := fn(&next); err != nil {
		return nil, err
	}
	if wasArchived && !next.IsArchived() {
		return nil, fixtureError(http.StatusConflict, "document is archived")
	}
	next.UpdatedAt = f.now()
	f.documents[idx] = next
	return &next, nil
}

func (f *FixtureSource) indexLocked(id string) int {
	for i := range f.documents {
		if f.documents[i].ID == id {
			return i
		}
	}
	return -1
}

// categoryLocked resolves ref as an id first, then as a case-insensitive name.
func (f *FixtureSource) categoryLocked(ref string) (domain.Category, bool) {
	for _, c := range f.categories {
		if c.ID == ref {
			return c, true
		}
	}
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return domain.Category{}, false
}

func (f *FixtureSource) activeCountLocked(categoryID string) int {
	n := 0
	for _, doc := range f.documents {
		if doc.CategoryID == categoryID && !doc.IsArchived() {
			n++
		}
	}
	return n
}

func percentOf(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
