package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

func doc(id string, status domain.DocumentStatus, categoryID string) domain.Document {
	return domain.Document{
		ID:         id,
		Filename:   id + ".pdf",
		Status:     status,
		CategoryID: categoryID,
		CreatedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPoolOfIsAFunctionOfStatus(t *testing.T) {
	cases := map[domain.DocumentStatus]Pool{
		domain.StatusProcessed: PoolProcessed,
		domain.StatusPending:   PoolPending,
		domain.StatusUploaded:  PoolPending,
		domain.StatusUnknown:   PoolUnknown,
		domain.StatusArchived:  PoolNone,
		domain.StatusQueued:    PoolNone,
	}
	for status, want := range cases {
		for _, category := range []string{"", "cat-inv"} {
			if got := PoolOf(doc("d", status, category)); got != want {
				t.Fatalf("PoolOf(%s, %q) = %q, want %q", status, category, got, want)
			}
		}
	}
}

func TestDerivePoolsExcludesArchived(t *testing.T) {
	docs := []domain.Document{
		doc("a", domain.StatusProcessed, "inv"),
		doc("b", domain.StatusArchived, "inv"),
		doc("c", domain.StatusUploaded, "inv"),
		doc("d", domain.StatusUnknown, ""),
	}
	pools := DerivePools(docs)
	if len(pools.Processed) != 1 || pools.Processed[0].ID != "a" {
		t.Fatalf("unexpected processed pool: %+v", pools.Processed)
	}
	if len(pools.Pending) != 1 || pools.Pending[0].ID != "c" {
		t.Fatalf("unexpected pending pool: %+v", pools.Pending)
	}
	if len(pools.Unknown) != 1 || pools.Unknown[0].ID != "d" {
		t.Fatalf("unexpected unknown pool: %+v", pools.Unknown)
	}
	total := len(pools.Processed) + len(pools.Pending) + len(pools.Unknown)
	if total != 3 {
		t.Fatalf("archived document leaked into a pool")
	}
}

func TestVisibleSearchAppliesBeforePageCut(t *testing.T) {
	var docs []domain.Document
	for i := 0; i < 40; i++ {
		d := doc(fmt.Sprintf("doc-%02d", i), domain.StatusProcessed, "inv")
		if i >= 20 {
			d.Filename = fmt.Sprintf("Invoice-%02d.pdf", i)
		}
		docs = append(docs, d)
	}
	pools := DerivePools(docs)

	visible, more := Visible(pools, View{Tab: TabDocuments, Search: "iNvOiCe", Pages: 1})
	if len(visible) != PageSize || !more {
		t.Fatalf("expected first page of matches with more, got %d more=%v", len(visible), more)
	}
	for _, d := range visible {
		if d.Filename[:7] != "Invoice" {
			t.Fatalf("non-matching document on page: %s", d.Filename)
		}
	}

	visible, more = Visible(pools, View{Tab: TabDocuments, Search: "invoice", Pages: 2})
	if len(visible) != 20 || more {
		t.Fatalf("expected all 20 matches on two pages, got %d more=%v", len(visible), more)
	}
}

func TestVisibleFiltersByCategoryAndTab(t *testing.T) {
	pools := DerivePools([]domain.Document{
		doc("a", domain.StatusProcessed, "inv"),
		doc("b", domain.StatusProcessed, "rec"),
		doc("c", domain.StatusPending, "inv"),
		doc("d", domain.StatusPending, "rec"),
		doc("e", domain.StatusUnknown, "rec"),
	})

	visible, _ := Visible(pools, View{CategoryID: "inv", Tab: TabDocuments, Pages: 1})
	if len(visible) != 1 || visible[0].ID != "a" {
		t.Fatalf("unexpected documents tab: %+v", visible)
	}
	visible, _ = Visible(pools, View{CategoryID: "inv", Tab: TabPending})
	if len(visible) != 2 {
		t.Fatalf("pending tab must ignore the selected category, got %+v", visible)
	}
	visible, _ = Visible(pools, View{CategoryID: "inv", Tab: TabUnknown})
	if len(visible) != 1 || visible[0].ID != "e" {
		t.Fatalf("unknown tab must ignore the selected category, got %+v", visible)
	}
	visible, _ = Visible(pools, View{Tab: TabDocuments, Pages: 1})
	if len(visible) != 2 {
		t.Fatalf("no category should show every processed document, got %d", len(visible))
	}
}
