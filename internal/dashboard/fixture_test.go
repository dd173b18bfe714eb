package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const testFixture = `
categories:
  - id: invoice
    name: Invoices
    description: Bills with totals
  - id: receipt
    name: Receipts
    description: Proof of payment
documents:
  - id: "1"
    filename: invoice.pdf
    status: Processed
    category_id: invoice
    text: Invoice INV-12345
    kv_data:
      - key: Invoice Number
        value: INV-12345
      - key: Total Amount
        value: $5,000
  - id: "2"
    filename: receipt.pdf
    status: Uploaded
    category_id: receipt
  - id: "3"
    filename: contract.pdf
    status: Unknown
`

func newFixture(t *testing.T) *FixtureSource {
	t.Helper()
	src, err := ParseFixture([]byte(testFixture))
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	return src
}

func TestParseFixture(t *testing.T) {
	src := newFixture(t)
	docs, _ := src.ListDocuments(context.Background())
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if len(docs[0].KeyValues) != 2 || docs[0].KeyValues[1].Value != "$5,000" {
		t.Fatalf("unexpected kv_data: %+v", docs[0].KeyValues)
	}
	if docs[0].ProcessedAt == nil {
		t.Fatalf("processed fixture documents need processed_at")
	}

	categories, _ := src.ListCategories(context.Background())
	if len(categories) != 2 || categories[0].DocumentCount != 1 {
		t.Fatalf("unexpected categories: %+v", categories)
	}
}

func TestParseFixtureRejectsUnknownStatus(t *testing.T) {
	_, err := ParseFixture([]byte("documents:\n  - filename: a.pdf\n    status: Done\n"))
	if err == nil || !strings.Contains(err.Error(), "Done") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFixtureArchiveIsIdempotentAndFinal(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()

	first, err := src.Archive(ctx, "1")
	if err != nil || first.Status != domain.StatusArchived {
		t.Fatalf("archive: %v %+v", err, first)
	}
	second, err := src.Archive(ctx, "1")
	if err != nil || second.Status != domain.StatusArchived || !second.ArchivedAt.Equal(*first.ArchivedAt) {
		t.Fatalf("second archive must be idempotent: %v %+v", err, second)
	}

	_, err = src.Recategorize(ctx, "1", "receipt", "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
		t.Fatalf("archived document must not leave the archive, got %v", err)
	}
	_, err = src.UpdateKeyValues(ctx, "1", []domain.KeyValue{{Key: "a", Value: "b"}})
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
		t.Fatalf("archived document kv update must conflict, got %v", err)
	}
}

func TestFixtureStats(t *testing.T) {
	src := newFixture(t)
	stats, err := src.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 3 || stats.ProcessedCount != 1 || stats.PendingCount != 1 || stats.UnknownCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ProcessingAccuracy != 33.33 {
		t.Fatalf("unexpected accuracy %v", stats.ProcessingAccuracy)
	}
	if len(stats.Pools) != 2 || stats.Pools[0].Accuracy != 100 {
		t.Fatalf("unexpected pools: %+v", stats.Pools)
	}
}

func TestNewDataSourceSelectsImplementation(t *testing.T) {
	src, err := NewDataSource(SourceConfig{Kind: SourceHTTP, APIURL: "http://localhost:8080"})
	if err != nil {
		t.Fatalf("http source: %v", err)
	}
	if _, ok := src.(*APIClient); !ok {
		t.Fatalf("expected APIClient, got %T", src)
	}
	if _, err := NewDataSource(SourceConfig{Kind: "carrier-pigeon"}); err == nil {
		t.Fatalf("unsupported source must fail")
	}
}
