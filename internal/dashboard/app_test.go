package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// blockingSource wraps a fixture and can hold Archive calls until released.
type blockingSource struct {
	*FixtureSource
	mu           sync.Mutex
	archiveCalls int
	entered      chan struct{}
	release      chan struct{}
	listErr      error
}

func (b *blockingSource) Archive(ctx context.Context, id string) (*domain.Document, error) {
	b.mu.Lock()
	b.archiveCalls++
	b.mu.Unlock()
	if b.entered != nil {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.FixtureSource.Archive(ctx, id)
}

func (b *blockingSource) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.FixtureSource.ListDocuments(ctx)
}

func newTestApp(t *testing.T) (*App, *blockingSource) {
	t.Helper()
	src := &blockingSource{FixtureSource: newFixture(t)}
	app := NewApp(src, NewState(), nil)
	if err := app.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return app, src
}

func TestAppLoad(t *testing.T) {
	app, _ := newTestApp(t)
	snap := app.State().Snapshot()
	if len(snap.Documents) != 3 || len(snap.Categories) != 2 {
		t.Fatalf("unexpected load: %d documents, %d categories", len(snap.Documents), len(snap.Categories))
	}
}

func TestAppLoadFailureLeavesStateUntouched(t *testing.T) {
	src := &blockingSource{FixtureSource: newFixture(t), listErr: ErrConnectivity}
	app := NewApp(src, NewState(), nil)
	if err := app.Load(context.Background()); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if snap := app.State().Snapshot(); len(snap.Categories) != 0 || len(snap.Documents) != 0 {
		t.Fatalf("failed load must not change state")
	}
}

func TestAppUploadProcessScenario(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	if _, err := app.Upload(ctx, "invoice-2.pdf", strings.NewReader("%PDF")); !errors.Is(err, ErrValidation) {
		t.Fatalf("upload without category must be a validation error, got %v", err)
	}

	app.State().SelectCategory("invoice")
	uploaded, err := app.Upload(ctx, "invoice-2.pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uploaded.CategoryID != "invoice" || PoolOf(*uploaded) != PoolPending {
		t.Fatalf("unexpected uploaded document: %+v", uploaded)
	}
	app.State().SetTab(TabPending)
	if !containsID(app.State().Snapshot().Visible, uploaded.ID) {
		t.Fatalf("uploaded document missing from pending pool")
	}

	processed, err := app.Process(ctx, uploaded.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if processed.Status != domain.StatusProcessed || processed.CategoryID == "" || processed.Text == "" {
		t.Fatalf("unexpected processed document: %+v", processed)
	}

	snap := app.State().Snapshot()
	if containsID(snap.Pools.Pending, uploaded.ID) || containsID(snap.Pools.Unknown, uploaded.ID) {
		t.Fatalf("processed document still in another pool")
	}
	app.State().SetTab(TabDocuments)
	if !containsID(app.State().Snapshot().Visible, uploaded.ID) {
		t.Fatalf("processed document missing from Invoices documents tab")
	}
}

func TestAppArchiveRemovesFromPool(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	if _, err := app.Archive(ctx, "1"); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if containsID(app.State().Snapshot().Pools.Processed, "1") {
		t.Fatalf("archived document still in processed pool")
	}
	if _, err := app.Archive(ctx, "1"); err != nil {
		t.Fatalf("second archive must be idempotent: %v", err)
	}
}

func TestAppRejectsDuplicateInFlightAction(t *testing.T) {
	app, src := newTestApp(t)
	src.entered = make(chan struct{})
	src.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := app.Archive(context.Background(), "1")
		done <- err
	}()
	<-src.entered

	if _, err := app.Archive(context.Background(), "1"); !errors.Is(err, ErrActionInFlight) {
		t.Fatalf("expected ErrActionInFlight, got %v", err)
	}
	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if src.archiveCalls != 1 {
		t.Fatalf("expected one request, got %d", src.archiveCalls)
	}
}

func TestAppAddCategory(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	if _, err := app.AddCategory(ctx, "Contracts", " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing description must be a validation error, got %v", err)
	}
	if _, err := app.AddCategory(ctx, "Contracts", "Legal agreements"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if n := len(app.State().Snapshot().Categories); n != 3 {
		t.Fatalf("expected 3 categories, got %d", n)
	}

	var statusErr *StatusError
	if _, err := app.AddCategory(ctx, "contracts", "dup"); !errors.As(err, &statusErr) {
		t.Fatalf("duplicate must surface a status error, got %v", err)
	}
	if n := len(app.State().Snapshot().Categories); n != 3 {
		t.Fatalf("failed add must leave state unchanged, got %d", n)
	}
}

func TestAppSaveKeyValuesNormalizes(t *testing.T) {
	app, _ := newTestApp(t)
	doc, err := app.SaveKeyValues(context.Background(), "1", []domain.KeyValue{
		{Key: "Total", Value: "1"},
		{Key: " ", Value: "dropped"},
		{Key: "Total", Value: "2"},
	})
	if err != nil {
		t.Fatalf("SaveKeyValues: %v", err)
	}
	if len(doc.KeyValues) != 1 || doc.KeyValues[0].Value != "2" {
		t.Fatalf("unexpected kv_data: %+v", doc.KeyValues)
	}
}

func TestAppRecategorizeAndDeleteCategory(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	doc, err := app.Recategorize(ctx, "3", "receipt", "it is a receipt")
	if err != nil {
		t.Fatalf("Recategorize: %v", err)
	}
	if doc.Status != domain.StatusProcessed || doc.CategoryID != "receipt" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if err := app.DeleteCategory(ctx, "Receipts"); err == nil {
		t.Fatalf("referenced category must not be deleted")
	}
	if _, err := app.AddCategory(ctx, "Temp", "Scratch"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if err := app.DeleteCategory(ctx, "Temp"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	for _, c := range app.State().Snapshot().Categories {
		if c.Name == "Temp" {
			t.Fatalf("deleted category still in state")
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(errors.Join(ErrConnectivity, errors.New("dial tcp"))); got != "cannot reach the IntelliDocs API" {
		t.Fatalf("unexpected connectivity description %q", got)
	}
	if got := Describe(&StatusError{StatusCode: 404, Status: "404 Not Found", Message: "document not found"}); got != "404 Not Found: document not found" {
		t.Fatalf("unexpected status description %q", got)
	}
}

func containsID(docs []domain.Document, id string) bool {
	for _, d := range docs {
		if d.ID == id {
			return true
		}
	}
	return false
}
