// Package dashboard is the terminal dashboard's client side: an explicit state store with
// pure pool selectors, a data source chosen once at startup, and the controllers that
// drive mutations, document chat and stats polling.
package dashboard

import (
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// PageSize is the pagination unit of every pool.
const PageSize = 15

type Pool string

const (
	PoolNone      Pool = ""
	PoolProcessed Pool = "processed"
	PoolPending   Pool = "pending"
	PoolUnknown   Pool = "unknown"
)

// Tab selects which pool the view shows. The documents tab is the processed pool.
type Tab string

const (
	TabDocuments Tab = "documents"
	TabPending   Tab = "pending"
	TabUnknown   Tab = "unknown"
)

var Tabs = []Tab{TabDocuments, TabPending, TabUnknown}

func (t Tab) Valid() bool {
	switch t {
	case TabDocuments, TabPending, TabUnknown:
		return true
	default:
		return false
	}
}

func (t Tab) pool() Pool {
	switch t {
	case TabPending:
		return PoolPending
	case TabUnknown:
		return PoolUnknown
	default:
		return PoolProcessed
	}
}

// PoolOf depends on status only. Archived and queued documents belong to no pool.
func PoolOf(doc domain.Document) Pool {
	switch doc.Status {
	case domain.StatusProcessed:
		return PoolProcessed
	case domain.StatusPending, domain.StatusUploaded:
		return PoolPending
	case domain.StatusUnknown:
		return PoolUnknown
	default:
		return PoolNone
	}
}

type Pools struct {
	Processed []domain.Document
	Pending   []domain.Document
	Unknown   []domain.Document
}

func (p Pools) Of(pool Pool) []domain.Document {
	switch pool {
	case PoolProcessed:
		return p.Processed
	case PoolPending:
		return p.Pending
	case PoolUnknown:
		return p.Unknown
	default:
		return nil
	}
}

// DerivePools partitions docs, keeping their order.
func DerivePools(docs []domain.Document) Pools {
	var pools Pools
	for _, doc := range docs {
		switch PoolOf(doc) {
		case PoolProcessed:
			pools.Processed = append(pools.Processed, doc)
		case PoolPending:
			pools.Pending = append(pools.Pending, doc)
		case PoolUnknown:
			pools.Unknown = append(pools.Unknown, doc)
		}
	}
	return pools
}

// View is what the user is looking at. Pages counts loaded page units, starting at 1.
type View struct {
	CategoryID string
	Tab        Tab
	Search     string
	Pages      int
}

// Visible returns the page-limited slice of the active pool and whether more items remain.
// The category filter only narrows the documents tab; pending and unknown are global queues.
// Filters apply before the cut-off.
func Visible(pools Pools, view View) ([]domain.Document, bool) {
	search := strings.ToLower(strings.TrimSpace(view.Search))
	var matched []domain.Document
	for _, doc := range pools.Of(view.Tab.pool()) {
		if view.Tab == TabDocuments && view.CategoryID != "" && doc.CategoryID != view.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(doc.Filename), search) {
			continue
		}
		matched = append(matched, doc)
	}

	pages := view.Pages
	if pages < 1 {
		pages = 1
	}
	limit := pages * PageSize
	if len(matched) <= limit {
		return matched, false
	}
	return matched[:limit], true
}
